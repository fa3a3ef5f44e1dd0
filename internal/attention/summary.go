package attention

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the glances recorded in one bucket.
type Summary struct {
	Stage        string        `json:"stage"`
	Focus        string        `json:"focus"`
	Zone         string        `json:"zone"`
	Total        time.Duration `json:"-"`
	TotalMs      int64         `json:"total_ms"`
	Glances      int           `json:"glances"`
	MeanGlance   float64       `json:"mean_glance_ms"`
	StdDevGlance float64       `json:"stddev_glance_ms"`
	MaxGlance    float64       `json:"max_glance_ms"`
	// Share is the bucket's fraction of all attention time recorded for the
	// same stage and focus, 0 when that total is zero.
	Share float64 `json:"share"`
}

type stageFocus struct {
	stage string
	focus string
}

// Summarize returns glance statistics for every bucket in report order.
func (a *Aggregator) Summarize() []Summary {
	keys := a.Keys()

	totals := make(map[stageFocus][]float64)
	for _, k := range keys {
		sf := stageFocus{k.Stage, k.Focus()}
		totals[sf] = append(totals[sf], ms(a.buckets[k].Total))
	}

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		b := a.buckets[k]
		s := Summary{
			Stage:   k.Stage,
			Focus:   k.Focus(),
			Zone:    k.Zone,
			Total:   b.Total,
			TotalMs: b.Total.Milliseconds(),
			Glances: len(b.Glances),
		}

		if len(b.Glances) > 0 {
			g := make([]float64, len(b.Glances))
			for i, d := range b.Glances {
				g[i] = ms(d)
			}
			s.MaxGlance = floats.Max(g)
			if len(g) > 1 {
				s.MeanGlance, s.StdDevGlance = stat.MeanStdDev(g, nil)
			} else {
				s.MeanGlance = g[0]
			}
		}

		if sum := floats.Sum(totals[stageFocus{k.Stage, k.Focus()}]); sum > 0 {
			s.Share = ms(b.Total) / sum
		}
		out = append(out, s)
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
