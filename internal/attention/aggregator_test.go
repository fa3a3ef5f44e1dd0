package attention

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/richa/internal/timeutil"
	"github.com/banshee-data/richa/internal/zone"
)

// newTestAggregator returns an aggregator on a mock clock reading t=0ms.
func newTestAggregator() (*Aggregator, *Context, *timeutil.MockClock) {
	ctx := &Context{}
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewAggregator(ctx, clock), ctx, clock
}

// at moves the clock to ms milliseconds after the aggregator's epoch.
func at(clock *timeutil.MockClock, ms int) {
	clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond))
}

func TestContext_SetTaskBusy(t *testing.T) {
	c := &Context{}
	assert.False(t, c.TaskBusy())
	assert.Equal(t, 0, c.TaskCount())

	assert.False(t, c.SetTaskBusy(false), "false to false is not a change")
	assert.True(t, c.SetTaskBusy(true))
	assert.False(t, c.SetTaskBusy(true), "true to true does not start a new task")
	assert.Equal(t, 1, c.TaskCount())
	assert.True(t, c.SetTaskBusy(false))
	assert.True(t, c.SetTaskBusy(true))
	assert.Equal(t, 2, c.TaskCount())

	c.SetStage("Manual")
	assert.Equal(t, "Manual", c.Stage())
}

func TestFeed_NoStageIsNoop(t *testing.T) {
	a, _, clock := newTestAggregator()
	a.Feed("Windshield", zone.Enter)
	clock.Advance(time.Second)
	a.Feed("Windshield", zone.Exit)

	assert.Empty(t, a.Keys())
	assert.Empty(t, a.BuildReport())
}

func TestFeed_EnterExit(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Manual")

	at(clock, 1000)
	a.Feed("Windshield", zone.Enter)
	at(clock, 1500)
	a.Feed("Windshield", zone.Exit)

	assert.Equal(t, []string{"Manual\troad\tWindshield\t500"}, a.BuildReport())
}

func TestFeed_AddsExactDuration(t *testing.T) {
	for _, d := range []int{0, 1, 17, 250, 60_000} {
		a, ctx, clock := newTestAggregator()
		ctx.SetStage("NonCritical")
		key := Key{Zone: "RearView", Stage: "NonCritical"}

		at(clock, 100)
		a.Feed("RearView", zone.Enter)
		at(clock, 100+d)
		a.Feed("RearView", zone.Exit)
		first, ok := a.Bucket(key)
		require.True(t, ok)
		assert.Equal(t, time.Duration(d)*time.Millisecond, first.Total)

		a.Feed("RearView", zone.Enter)
		clock.Advance(time.Duration(d) * time.Millisecond)
		a.Feed("RearView", zone.Exit)
		second, _ := a.Bucket(key)
		assert.Equal(t, first.Total+time.Duration(d)*time.Millisecond, second.Total)
		assert.Len(t, second.Glances, 2)
	}
}

func TestFeed_ExitWithoutEnter(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Manual")
	key := Key{Zone: "Windshield", Stage: "Manual"}

	a.Feed("Windshield", zone.Exit)
	b, ok := a.Bucket(key)
	require.True(t, ok, "bucket is created lazily even for an unmatched exit")
	assert.Zero(t, b.Total)

	a.Feed("Windshield", zone.Enter)
	clock.Advance(300 * time.Millisecond)
	a.Feed("Windshield", zone.Exit)
	clock.Advance(300 * time.Millisecond)
	a.Feed("Windshield", zone.Exit)

	b, _ = a.Bucket(key)
	assert.Equal(t, 300*time.Millisecond, b.Total)
	assert.False(t, b.Open())
}

func TestFeed_ReentrantEnterRestartsInterval(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Manual")

	at(clock, 0)
	a.Feed("Windshield", zone.Enter)
	at(clock, 400)
	a.Feed("Windshield", zone.Enter) // the first 400ms are discarded
	at(clock, 500)
	a.Feed("Windshield", zone.Exit)

	assert.Equal(t, []string{"Manual\troad\tWindshield\t100"}, a.BuildReport())
}

func TestFeed_TaskBusySplitsBuckets(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Critical")

	ctx.SetTaskBusy(true)
	require.Equal(t, 1, ctx.TaskCount())
	at(clock, 2000)
	a.Feed("LeftMirror", zone.Enter)
	at(clock, 2200)
	a.Feed("LeftMirror", zone.Exit)
	ctx.SetTaskBusy(false)

	at(clock, 3000)
	a.Feed("LeftMirror", zone.Enter)
	at(clock, 3050)
	a.Feed("LeftMirror", zone.Exit)

	busy, ok := a.Bucket(Key{Zone: "LeftMirror", Stage: "Critical", TaskBusy: true})
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, busy.Total)

	road, ok := a.Bucket(Key{Zone: "LeftMirror", Stage: "Critical", TaskBusy: false})
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, road.Total)

	assert.Equal(t, []string{
		"Critical\troad\tLeftMirror\t50",
		"Critical\ttask\tLeftMirror\t200",
	}, a.BuildReport())
}

func TestFeed_KeyCapturedAtCallTime(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Manual")
	a.Feed("Windshield", zone.Enter)
	clock.Advance(time.Second)

	// the exit lands in a different bucket, which has no open interval
	ctx.SetStage("Critical")
	a.Feed("Windshield", zone.Exit)

	assert.Equal(t, []Key{{Zone: "Windshield", Stage: "Manual"}}, a.OpenKeys())
	assert.Equal(t, []string{
		"Critical\troad\tWindshield\t0",
		"Manual\troad\tWindshield\t0",
	}, a.BuildReport())
}

func TestBuildReport_SortedAndDeduplicated(t *testing.T) {
	a, ctx, _ := newTestAggregator()

	// these two keys format to the same record
	ctx.SetStage("S")
	a.Feed("road\tZ", zone.Exit)
	ctx.SetStage("S\troad")
	a.Feed("Z", zone.Exit)

	ctx.SetStage("A")
	a.Feed("Windshield", zone.Exit)
	a.Feed("CentralConsole", zone.Exit)

	report := a.BuildReport()
	assert.Len(t, report, 3)
	assert.True(t, sort.StringsAreSorted(report))
	assert.Equal(t, "A\troad\tCentralConsole\t0", report[0])
}

func TestKeyOrdering(t *testing.T) {
	keys := []Key{
		{Zone: "b", Stage: "Manual", TaskBusy: true},
		{Zone: "a", Stage: "Manual", TaskBusy: true},
		{Zone: "z", Stage: "Manual"},
		{Zone: "a", Stage: "Critical"},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	assert.Equal(t, []Key{
		{Zone: "a", Stage: "Critical"},
		{Zone: "z", Stage: "Manual"},
		{Zone: "a", Stage: "Manual", TaskBusy: true},
		{Zone: "b", Stage: "Manual", TaskBusy: true},
	}, keys)
}

func TestSummarize(t *testing.T) {
	a, ctx, clock := newTestAggregator()
	ctx.SetStage("Manual")

	glance := func(name string, d time.Duration) {
		a.Feed(name, zone.Enter)
		clock.Advance(d)
		a.Feed(name, zone.Exit)
	}
	glance("Windshield", 100*time.Millisecond)
	glance("Windshield", 300*time.Millisecond)
	glance("RearView", 600*time.Millisecond)

	sum := a.Summarize()
	require.Len(t, sum, 2)

	rv := sum[0]
	assert.Equal(t, "RearView", rv.Zone)
	assert.Equal(t, 1, rv.Glances)
	assert.InDelta(t, 600, rv.MeanGlance, 1e-9)
	assert.InDelta(t, 0.6, rv.Share, 1e-9)

	ws := sum[1]
	assert.Equal(t, "Windshield", ws.Zone)
	assert.Equal(t, "road", ws.Focus)
	assert.Equal(t, int64(400), ws.TotalMs)
	assert.Equal(t, 2, ws.Glances)
	assert.InDelta(t, 200, ws.MeanGlance, 1e-9)
	assert.InDelta(t, 141.4213562, ws.StdDevGlance, 1e-6)
	assert.InDelta(t, 300, ws.MaxGlance, 1e-9)
	assert.InDelta(t, 0.4, ws.Share, 1e-9)
}

func TestSummarize_EmptyBucket(t *testing.T) {
	a, ctx, _ := newTestAggregator()
	ctx.SetStage("Manual")
	a.Feed("Windshield", zone.Exit)

	sum := a.Summarize()
	require.Len(t, sum, 1)
	assert.Zero(t, sum[0].Glances)
	assert.Zero(t, sum[0].Share)
}
