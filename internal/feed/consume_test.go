package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/richa/internal/gaze"
)

type sinkFunc func(ctx context.Context, s gaze.Sample) error

func (f sinkFunc) Submit(ctx context.Context, s gaze.Sample) error { return f(ctx, s) }

func TestConsume(t *testing.T) {
	lines := make(chan string, 8)
	lines <- `{"frame":1,"closest_world_intersection":{"object_name":"Windshield"}}`
	lines <- ""
	lines <- `{"frame":`
	lines <- `{}`
	close(lines)

	var got []gaze.Sample
	st, err := Consume(context.Background(), lines, sinkFunc(func(_ context.Context, s gaze.Sample) error {
		got = append(got, s)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 4, Samples: 2, Malformed: 1}, st)
	require.Len(t, got, 2)
	assert.Equal(t, "Windshield", got[0].ClosestWorldIntersection.ObjectName)
	assert.True(t, got[1].IsReset())
}

func TestConsume_SubmitErrorStops(t *testing.T) {
	lines := make(chan string, 2)
	lines <- `{}`
	lines <- `{}`

	stop := errors.New("session stopped")
	st, err := Consume(context.Background(), lines, sinkFunc(func(context.Context, gaze.Sample) error {
		return stop
	}))
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, Stats{Lines: 1}, st)
}

func TestConsume_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Consume(ctx, make(chan string), sinkFunc(func(context.Context, gaze.Sample) error { return nil }))
	assert.ErrorIs(t, err, context.Canceled)
}
