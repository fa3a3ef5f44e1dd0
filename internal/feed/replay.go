package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/richa/internal/timeutil"
)

// ReplayPort plays back a recorded sample file one line per tick, then
// reports EOF like a tracker hanging up. Commands written to it are kept
// for inspection.
type ReplayPort struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	ticker timeutil.Ticker
	src    io.Closer

	mu       sync.Mutex
	commands bytes.Buffer

	done      chan struct{}
	closeOnce sync.Once
}

// NewReplayPort starts replaying src at one line per interval on clock.
// Blank lines are skipped without consuming a tick.
func NewReplayPort(src io.Reader, clock timeutil.Clock, interval time.Duration) *ReplayPort {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	pr, pw := io.Pipe()
	p := &ReplayPort{
		r:      pr,
		w:      pw,
		ticker: clock.NewTicker(interval),
		done:   make(chan struct{}),
	}
	if c, ok := src.(io.Closer); ok {
		p.src = c
	}
	go p.pump(src)
	return p
}

func (p *ReplayPort) pump(src io.Reader) {
	defer p.ticker.Stop()
	scan := bufio.NewScanner(src)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scan.Scan() {
		line := scan.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case <-p.ticker.C():
		case <-p.done:
			return
		}
		if _, err := io.WriteString(p.w, line+"\n"); err != nil {
			return
		}
	}
	// a nil scan error closes the pipe with io.EOF
	p.w.CloseWithError(scan.Err())
}

func (p *ReplayPort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commands.Write(b)
}

// Commands returns everything written to the port.
func (p *ReplayPort) Commands() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commands.String()
}

func (p *ReplayPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.r.Close()
		if p.src != nil {
			err = p.src.Close()
		}
	})
	return err
}

// OpenReplay replays the recording at path.
func OpenReplay(path string, clock timeutil.Clock, interval time.Duration) (*Mux[*ReplayPort], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	return NewMux(NewReplayPort(f, clock, interval)), nil
}
