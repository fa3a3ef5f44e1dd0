package tracker

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/zone"
)

func hit(name string) *gaze.Intersection {
	if name == "" {
		return nil
	}
	return &gaze.Intersection{ObjectName: name}
}

func hits(names ...string) []gaze.Intersection {
	out := make([]gaze.Intersection, 0, len(names))
	for _, n := range names {
		out = append(out, gaze.Intersection{ObjectName: n})
	}
	return out
}

func TestClosest_Observe(t *testing.T) {
	tests := []struct {
		name    string
		prev    string
		closest string
		want    *zone.Transition
		current string
	}{
		{"none to zone", "", "Windshield", &zone.Transition{Zone: "Windshield", Event: zone.Enter}, "Windshield"},
		{"steady", "Windshield", "Windshield", nil, "Windshield"},
		{"zone to none", "Windshield", "", &zone.Transition{Zone: "Windshield", Event: zone.Exit}, ""},
		{"none to none", "", "", nil, ""},
		{"switch emits only enter", "Windshield", "RearView", &zone.Transition{Zone: "RearView", Event: zone.Enter}, "RearView"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Closest{current: tt.prev}
			got, ok := c.Observe(hit(tt.closest))
			if tt.want == nil {
				assert.False(t, ok)
			} else {
				require.True(t, ok)
				assert.Equal(t, *tt.want, got)
			}
			assert.Equal(t, tt.current, c.Current())
		})
	}
}

func TestClosest_ReplayProperty(t *testing.T) {
	names := []string{"", "Windshield", "LeftMirror", "RearView"}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		c := &Closest{}
		prev := ""
		wantEnters, gotEnters := 0, 0
		last := ""

		for i := 0; i < 200; i++ {
			n := names[rng.Intn(len(names))]
			if n != "" && n != prev {
				wantEnters++
			}
			prev = n
			last = n

			if tr, ok := c.Observe(hit(n)); ok && tr.Event == zone.Enter {
				gotEnters++
			}
		}

		assert.Equal(t, wantEnters, gotEnters)
		assert.Equal(t, last, c.Current())
	}
}

func TestAll_Observe(t *testing.T) {
	a := &All{}

	got := a.Observe(hits("Windshield", "RearView", "Windshield"))
	want := []zone.Transition{
		{Zone: "RearView", Event: zone.Enter},
		{Zone: "Windshield", Event: zone.Enter},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("first frame mismatch (-want +got):\n%s", diff)
	}

	// no refresh enter for a zone present in both frames
	got = a.Observe(hits("Windshield", "LeftMirror"))
	want = []zone.Transition{
		{Zone: "RearView", Event: zone.Exit},
		{Zone: "LeftMirror", Event: zone.Enter},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("second frame mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"LeftMirror", "Windshield"}, a.Active())

	assert.Empty(t, a.Observe(hits("LeftMirror", "Windshield")))

	got = a.Observe(nil)
	want = []zone.Transition{
		{Zone: "LeftMirror", Event: zone.Exit},
		{Zone: "Windshield", Event: zone.Exit},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reset frame mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, a.Active())
	assert.Empty(t, a.Observe(nil))
}

func TestAll_ActiveMatchesFrame(t *testing.T) {
	names := []string{"Windshield", "LeftMirror", "RearView", "CentralConsole"}
	rng := rand.New(rand.NewSource(11))
	a := &All{}

	var frame []gaze.Intersection
	for i := 0; i < 300; i++ {
		frame = frame[:0]
		for _, n := range names {
			if rng.Intn(2) == 0 {
				frame = append(frame, gaze.Intersection{ObjectName: n})
			}
		}
		a.Observe(frame)

		set := map[string]struct{}{}
		for _, x := range frame {
			set[x.ObjectName] = struct{}{}
		}
		assert.Equal(t, sortedKeys(set), a.Active())
	}

	// replaying the final frame is idempotent
	before := a.Active()
	assert.Empty(t, a.Observe(frame))
	assert.Equal(t, before, a.Active())
}
