package feed

import (
	"context"
	"errors"

	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/monitoring"
)

// Submitter accepts decoded samples.
type Submitter interface {
	Submit(ctx context.Context, s gaze.Sample) error
}

// Stats counts what Consume did with the lines it read.
type Stats struct {
	Lines     int `json:"lines"`
	Samples   int `json:"samples"`
	Malformed int `json:"malformed"`
}

// Consume decodes every line from lines and hands the sample to sink, until
// lines is closed or ctx is done. Blank lines are ignored and malformed
// lines are counted and skipped. A Submit error stops consumption.
func Consume(ctx context.Context, lines <-chan string, sink Submitter) (Stats, error) {
	var st Stats
	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return st, nil
			}
			st.Lines++
			s, err := gaze.DecodeSample(line)
			if errors.Is(err, gaze.ErrEmptyLine) {
				continue
			}
			if err != nil {
				st.Malformed++
				monitoring.Debugf("feed: skipping line %d: %v", st.Lines, err)
				continue
			}
			if err := sink.Submit(ctx, s); err != nil {
				return st, err
			}
			st.Samples++
		}
	}
}
