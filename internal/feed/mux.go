// Package feed connects to the eye tracker's sample stream and fans each
// line out to any number of subscribers. A Mux can sit on a serial port, a
// TCP connection or a replayed recording; the session consumes one
// subscription while the debug routes tail another.
package feed

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/banshee-data/richa/internal/monitoring"
)

var ErrWriteFailed = fmt.Errorf("failed to write to tracker port")

// SubscriberBuffer is the number of lines a subscriber may fall behind
// before lines are dropped for it.
const SubscriberBuffer = 256

// maxLineBytes bounds a single sample line.
const maxLineBytes = 1 << 20

// Port is the minimal byte stream a tracker is reached over.
type Port interface {
	io.ReadWriter
	io.Closer
}

// LineMux is the interface shared by every tracker connection.
type LineMux interface {
	// Subscribe creates a new channel for receiving lines from the tracker.
	// The ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe closes and removes a subscriber channel.
	Unsubscribe(string)
	// SendCommand writes a command line to the tracker.
	SendCommand(string) error
	// Monitor reads lines from the port and delivers them to subscribers.
	// It returns nil when the tracker disconnects.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the port.
	Close() error

	// AttachAdminRoutes mounts debugging endpoints under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// Mux multiplexes the lines read from a single Port.
type Mux[T Port] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
	dropped      uint64
}

// NewMux returns a Mux reading from port.
func NewMux[T Port](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (m *Mux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, SubscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *Mux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand writes command to the port, appending a newline if missing.
func (m *Mux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Dropped returns how many lines were discarded for slow subscribers.
func (m *Mux[T]) Dropped() uint64 {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	return m.dropped
}

// Monitor reads lines from the port and sends them to subscribers.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking Scan runs on its own goroutine so the loop below can
	// still observe cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
				}
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// never block the reader on a slow subscriber
					m.dropped++
					monitoring.Debugf("feed: subscriber full, dropped line")
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *Mux[T]) Close() error {
	m.closingMu.Lock()
	if m.closing {
		m.closingMu.Unlock()
		return nil
	}
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	m.subscriberMu.Unlock()
	return m.port.Close()
}
