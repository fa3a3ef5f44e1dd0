package session

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/richa/internal/attention"
	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/timeutil"
	"github.com/banshee-data/richa/internal/zone"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	calls []string
}

func (r *recorder) Enter(z string) { r.calls = append(r.calls, "enter "+z) }
func (r *recorder) Exit(z string)  { r.calls = append(r.calls, "exit "+z) }

func hit(name string) *gaze.Intersection {
	return &gaze.Intersection{ObjectName: name}
}

func hits(names ...string) []gaze.Intersection {
	out := make([]gaze.Intersection, 0, len(names))
	for _, n := range names {
		out = append(out, gaze.Intersection{ObjectName: n})
	}
	return out
}

// gazeSample fills only the raw gaze views.
func gazeSample(closest string, all ...string) gaze.Sample {
	s := gaze.Sample{AllWorldIntersections: hits(all...)}
	if closest != "" {
		s.ClosestWorldIntersection = hit(closest)
	}
	return s
}

func newTestHandler(t *testing.T) (*Handler, *attention.Aggregator, *attention.Context, *timeutil.MockClock, *recorder) {
	t.Helper()
	zones, err := zone.NewRegistry(zone.DefaultNames)
	require.NoError(t, err)
	clock := timeutil.NewMockClock(epoch)
	ctx := &attention.Context{}
	agg := attention.NewAggregator(ctx, clock)
	rec := &recorder{}
	h := NewHandler(gaze.Selector{Source: gaze.SourceGaze}, zones, agg, rec)
	return h, agg, ctx, clock, rec
}

func TestHandler_ResetClosesOpenInterval(t *testing.T) {
	h, agg, ctx, clock, rec := newTestHandler(t)
	ctx.SetStage("Manual")

	clock.Set(epoch.Add(500 * time.Millisecond))
	require.NoError(t, h.Feed(gazeSample("Windshield", "Windshield", "RearView")))
	assert.Equal(t, "Windshield", h.Current())

	clock.Set(epoch.Add(900 * time.Millisecond))
	h.Reset()

	assert.Empty(t, h.Current())
	assert.Equal(t, []string{"Manual\troad\tWindshield\t400"}, agg.BuildReport())
	want := []string{"enter RearView", "enter Windshield", "exit RearView", "exit Windshield"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("renderer calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_AllZoneChangesDoNotAccrue(t *testing.T) {
	h, agg, ctx, clock, rec := newTestHandler(t)
	ctx.SetStage("Manual")

	require.NoError(t, h.Feed(gazeSample("", "LeftMirror")))
	clock.Advance(time.Second)
	require.NoError(t, h.Feed(gazeSample("")))

	assert.Empty(t, agg.Keys())
	assert.Equal(t, []string{"enter LeftMirror", "exit LeftMirror"}, rec.calls)
}

func TestHandler_DropsUnregisteredZones(t *testing.T) {
	h, agg, ctx, clock, rec := newTestHandler(t)
	ctx.SetStage("Manual")

	require.NoError(t, h.Feed(gazeSample("Passenger", "Passenger", "Windshield")))
	clock.Advance(300 * time.Millisecond)
	require.NoError(t, h.Feed(gazeSample("")))

	assert.Empty(t, agg.Keys(), "unregistered zones never reach the aggregator")
	assert.Equal(t, []string{"enter Windshield", "exit Windshield"}, rec.calls)
}

func TestHandler_SwitchOnlyEntersNewZone(t *testing.T) {
	h, agg, ctx, clock, _ := newTestHandler(t)
	ctx.SetStage("Manual")

	require.NoError(t, h.Feed(gazeSample("Windshield")))
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, h.Feed(gazeSample("RearView")))
	clock.Advance(300 * time.Millisecond)
	require.NoError(t, h.Feed(gazeSample("")))

	// The switch emits Enter(RearView) only, so Windshield stays open.
	assert.Equal(t, []string{"Manual\troad\tRearView\t300", "Manual\troad\tWindshield\t0"}, agg.BuildReport())
	assert.Equal(t, []attention.Key{{Zone: "Windshield", Stage: "Manual"}}, agg.OpenKeys())
}

func TestHandler_UsesSelectedView(t *testing.T) {
	h, agg, ctx, clock, _ := newTestHandler(t)
	h.selector = gaze.Selector{Source: gaze.SourceAI, Filtered: true}
	ctx.SetStage("Critical")

	s := gaze.Sample{
		ClosestWorldIntersection:                  hit("Windshield"),
		FilteredEstimatedClosestWorldIntersection: hit("CentralConsole"),
	}
	require.NoError(t, h.Feed(s))
	clock.Advance(120 * time.Millisecond)
	h.Reset()

	assert.Equal(t, []string{"Critical\troad\tCentralConsole\t120"}, agg.BuildReport())
}

func TestHandler_UnknownSource(t *testing.T) {
	h, _, _, _, _ := newTestHandler(t)
	h.selector = gaze.Selector{Source: gaze.Source(7)}

	err := h.Feed(gazeSample("Windshield"))
	assert.ErrorIs(t, err, gaze.ErrUnknownSource)
}

func TestRenderers_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	rs := Renderers{a, b}
	rs.Enter("Windshield")
	rs.Exit("Windshield")

	want := []string{"enter Windshield", "exit Windshield"}
	assert.Equal(t, want, a.calls)
	assert.Equal(t, want, b.calls)
}
