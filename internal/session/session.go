// Package session runs one recording session: it owns the experiment
// context, the attention aggregator and the sample handler, and serialises
// every sample and operator action onto a single processing goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/richa/internal/attention"
	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/monitoring"
	"github.com/banshee-data/richa/internal/render"
	"github.com/banshee-data/richa/internal/report"
	"github.com/banshee-data/richa/internal/timeutil"
	"github.com/banshee-data/richa/internal/zone"
)

var (
	// ErrStopped is returned by Submit once Run has returned.
	ErrStopped = errors.New("session is not running")
	// ErrFinished is returned for changes attempted after Finish.
	ErrFinished = errors.New("session already finished")
)

// Options configures a Session.
type Options struct {
	Selector gaze.Selector
	// Zones defaults to zone.DefaultNames.
	Zones []string
	// Clock defaults to timeutil.RealClock.
	Clock timeutil.Clock
	// Renderer receives highlight changes in addition to the session's own
	// highlight set.
	Renderer Renderer
}

// State is a snapshot of the session for operators.
type State struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Selector  string    `json:"selector"`
	Stage     string    `json:"stage"`
	TaskBusy  bool      `json:"task_busy"`
	TaskCount int       `json:"task_count"`
	Closest   string    `json:"closest"`
	Frames    uint64    `json:"frames"`
	Finished  bool      `json:"finished"`
}

// Session is a single recording run.
type Session struct {
	id        string
	selector  gaze.Selector
	clock     timeutil.Clock
	startedAt time.Time
	zones     *zone.Registry

	ctx        *attention.Context
	agg        *attention.Aggregator
	handler    *Handler
	highlights *render.Highlights
	marks      []report.StageMark
	frames     uint64
	doc        *report.Document

	ops     chan func()
	stopped chan struct{}
	err     error
	// mu serialises operations run after the loop has stopped.
	mu sync.Mutex
}

// New builds a session. It fails if the selector names an unsupported
// source.
func New(opts Options) (*Session, error) {
	if err := opts.Selector.Validate(); err != nil {
		return nil, err
	}
	names := opts.Zones
	if len(names) == 0 {
		names = zone.DefaultNames
	}
	zones, err := zone.NewRegistry(names)
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	s := &Session{
		id:         uuid.NewString(),
		selector:   opts.Selector,
		clock:      clock,
		startedAt:  clock.Now(),
		zones:      zones,
		ctx:        &attention.Context{},
		highlights: render.NewHighlights(),
		ops:        make(chan func()),
		stopped:    make(chan struct{}),
	}
	s.agg = attention.NewAggregator(s.ctx, clock)

	renderer := Renderers{s.highlights}
	if opts.Renderer != nil {
		renderer = append(renderer, opts.Renderer)
	}
	s.handler = NewHandler(opts.Selector, zones, s.agg, renderer)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Zones returns the registered zone names.
func (s *Session) Zones() []string { return s.zones.Names() }

// Run processes samples and operator actions until ctx is cancelled or a
// sample cannot be resolved. Run must only be called once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-s.ops:
			op()
			if s.err != nil {
				return s.err
			}
		}
	}
}

// Submit hands a sample to the processing goroutine. Samples arriving after
// Finish are dropped.
func (s *Session) Submit(ctx context.Context, sample gaze.Sample) error {
	op := func() {
		if s.doc != nil {
			return
		}
		s.frames++
		if err := s.handler.Feed(sample); err != nil {
			s.err = err
		}
	}
	select {
	case s.ops <- op:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the processing goroutine and waits for it. Once Run has
// returned, fn runs on the caller's goroutine under s.mu instead.
func (s *Session) do(fn func()) error {
	done := make(chan struct{})
	select {
	case s.ops <- func() { fn(); close(done) }:
		<-done
		return nil
	case <-s.stopped:
		if s.err != nil {
			return s.err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
		return nil
	}
}

// SetStage sets the driving stage and records a stage mark.
func (s *Session) SetStage(label string) error {
	var res error
	err := s.do(func() {
		if s.doc != nil {
			res = ErrFinished
			return
		}
		s.ctx.SetStage(label)
		s.mark(label)
	})
	return errors.Join(err, res)
}

// SetTaskBusy sets the task-busy flag. Each change records a
// "task{N}_start" or "task{N}_end" mark.
func (s *Session) SetTaskBusy(busy bool) error {
	var res error
	err := s.do(func() {
		if s.doc != nil {
			res = ErrFinished
			return
		}
		if !s.ctx.SetTaskBusy(busy) {
			return
		}
		if busy {
			s.mark(fmt.Sprintf("task%d_start", s.ctx.TaskCount()))
		} else {
			s.mark(fmt.Sprintf("task%d_end", s.ctx.TaskCount()))
		}
	})
	return errors.Join(err, res)
}

func (s *Session) mark(label string) {
	s.marks = append(s.marks, report.StageMark{Label: label, At: s.clock.Now()})
}

// Finish resets the trackers, closing the open closest-zone interval, and
// returns the session's report. Later calls return the same document.
func (s *Session) Finish() (*report.Document, error) {
	var doc *report.Document
	err := s.do(func() {
		if s.doc == nil {
			s.handler.Reset()
			for _, k := range s.agg.OpenKeys() {
				monitoring.Logf("session %s: interval for %s/%s/%s still open at finish, not counted",
					s.id, k.Stage, k.Focus(), k.Zone)
			}
			s.doc = s.document()
		}
		doc = s.doc
	})
	return doc, err
}

func (s *Session) document() *report.Document {
	keys := s.agg.Keys()
	rows := make([]report.Row, 0, len(keys))
	for _, k := range keys {
		b, _ := s.agg.Bucket(k)
		rows = append(rows, report.Row{
			Stage:   k.Stage,
			Focus:   k.Focus(),
			Zone:    k.Zone,
			TotalMs: b.Total.Milliseconds(),
			Glances: len(b.Glances),
		})
	}
	return &report.Document{
		SessionID: s.id,
		Selector:  s.selector.String(),
		StartedAt: s.startedAt,
		EndedAt:   s.clock.Now(),
		Stages:    append([]report.StageMark(nil), s.marks...),
		Attention: s.agg.BuildReport(),
		Rows:      rows,
	}
}

// Save finishes the session if needed and writes its report to store.
// A failed save leaves the document in place for another attempt.
func (s *Session) Save(ctx context.Context, store report.Store, dest string) error {
	doc, err := s.Finish()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, dest, doc); err != nil {
		monitoring.Logf("session %s: failed to save report: %v", s.id, err)
		return err
	}
	return nil
}

// Report returns the current attention records.
func (s *Session) Report() ([]string, error) {
	var lines []string
	err := s.do(func() { lines = s.agg.BuildReport() })
	return lines, err
}

// Summary returns glance statistics for every bucket.
func (s *Session) Summary() ([]attention.Summary, error) {
	var out []attention.Summary
	err := s.do(func() { out = s.agg.Summarize() })
	return out, err
}

// ActiveZones returns the zones currently highlighted.
func (s *Session) ActiveZones() ([]string, error) {
	var out []string
	err := s.do(func() { out = s.highlights.Active() })
	return out, err
}

// State returns a snapshot of the session.
func (s *Session) State() (State, error) {
	var st State
	err := s.do(func() {
		st = State{
			ID:        s.id,
			StartedAt: s.startedAt,
			Selector:  s.selector.String(),
			Stage:     s.ctx.Stage(),
			TaskBusy:  s.ctx.TaskBusy(),
			TaskCount: s.ctx.TaskCount(),
			Closest:   s.handler.Current(),
			Frames:    s.frames,
			Finished:  s.doc != nil,
		}
	})
	return st, err
}
