// Package attention accumulates how long each zone held the driver's
// closest gaze, split by driving stage and by whether the driver was busy
// with a secondary task.
package attention

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/richa/internal/timeutil"
	"github.com/banshee-data/richa/internal/zone"
)

const (
	FocusTask = "task"
	FocusRoad = "road"
)

// Key identifies an attention bucket.
type Key struct {
	Zone     string
	Stage    string
	TaskBusy bool
}

// Focus returns "task" when the key was recorded during a secondary task and
// "road" otherwise.
func (k Key) Focus() string {
	if k.TaskBusy {
		return FocusTask
	}
	return FocusRoad
}

// Less orders keys by stage, focus, then zone.
func (k Key) Less(o Key) bool {
	if k.Stage != o.Stage {
		return k.Stage < o.Stage
	}
	if k.Focus() != o.Focus() {
		return k.Focus() < o.Focus()
	}
	return k.Zone < o.Zone
}

// Bucket is the accumulated attention for one Key.
type Bucket struct {
	// Total only ever grows.
	Total time.Duration
	// Glances holds the length of each closed interval, in order.
	Glances []time.Duration

	startedAt time.Time
	accruing  bool
}

// Open reports whether an interval is currently accruing.
func (b *Bucket) Open() bool { return b.accruing }

// Aggregator turns closest-zone Enter/Exit events into per-bucket totals.
// It is not safe for concurrent use.
type Aggregator struct {
	ctx     *Context
	clock   timeutil.Clock
	buckets map[Key]*Bucket
}

// NewAggregator returns an Aggregator reading stage and task state from ctx.
func NewAggregator(ctx *Context, clock timeutil.Clock) *Aggregator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Aggregator{
		ctx:     ctx,
		clock:   clock,
		buckets: make(map[Key]*Bucket),
	}
}

// Feed records ev for zoneName against the bucket for the current context.
// It does nothing until a stage has been set.
//
// Enter always restarts the bucket's interval, so an Enter that arrives
// while the interval is still open discards the time accrued so far. Exit
// without an open interval is ignored.
func (a *Aggregator) Feed(zoneName string, ev zone.Event) {
	stage := a.ctx.Stage()
	if stage == "" {
		return
	}

	key := Key{Zone: zoneName, Stage: stage, TaskBusy: a.ctx.TaskBusy()}
	b, ok := a.buckets[key]
	if !ok {
		b = &Bucket{}
		a.buckets[key] = b
	}

	switch ev {
	case zone.Enter:
		b.startedAt = a.clock.Now()
		b.accruing = true
	case zone.Exit:
		if !b.accruing {
			return
		}
		d := a.clock.Since(b.startedAt)
		if d < 0 {
			d = 0
		}
		b.Total += d
		b.Glances = append(b.Glances, d)
		b.startedAt = time.Time{}
		b.accruing = false
	}
}

// Bucket returns a copy of the bucket for k.
func (a *Aggregator) Bucket(k Key) (Bucket, bool) {
	b, ok := a.buckets[k]
	if !ok {
		return Bucket{}, false
	}
	cp := *b
	cp.Glances = append([]time.Duration(nil), b.Glances...)
	return cp, true
}

// Keys returns every bucket key in report order.
func (a *Aggregator) Keys() []Key {
	keys := make([]Key, 0, len(a.buckets))
	for k := range a.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// OpenKeys returns the keys whose intervals are still accruing.
func (a *Aggregator) OpenKeys() []Key {
	var open []Key
	for _, k := range a.Keys() {
		if a.buckets[k].accruing {
			open = append(open, k)
		}
	}
	return open
}

// FormatLine renders one report record.
func FormatLine(k Key, total time.Duration) string {
	return fmt.Sprintf("%s\t%s\t%s\t%d", k.Stage, k.Focus(), k.Zone, total.Milliseconds())
}

// BuildReport returns one "stage\tfocus\tzone\ttotalMs" line per bucket,
// deduplicated and sorted as whole lines.
func (a *Aggregator) BuildReport() []string {
	seen := make(map[string]struct{}, len(a.buckets))
	lines := make([]string, 0, len(a.buckets))
	for k, b := range a.buckets {
		line := FormatLine(k, b.Total)
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}
