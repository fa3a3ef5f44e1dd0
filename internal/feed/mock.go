package feed

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// TestablePort implements Port with scripted reads for tests. Reads block
// until data is added, EOF is signalled or the port is closed.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer
	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// WriteError is returned by the next Write call if set
	WriteError error
	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool
	// CloseError is returned by Close if set
	CloseError error

	Closed bool
	eof    bool

	readCond *sync.Cond
}

// NewTestablePort returns an empty TestablePort.
func NewTestablePort() *TestablePort {
	p := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for !p.Closed && !p.eof && p.ReadBuffer.Len() == 0 {
		p.readCond.Wait()
	}
	if p.Closed {
		return 0, errors.New("port closed")
	}
	if p.ReadBuffer.Len() == 0 {
		return 0, io.EOF
	}
	return p.ReadBuffer.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errors.New("port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	n, err := p.WriteBuffer.Write(b)
	if p.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true
	p.readCond.Broadcast()
	return p.CloseError
}

// AddLines queues newline-terminated lines for subsequent reads.
func (p *TestablePort) AddLines(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, l := range lines {
		p.ReadBuffer.WriteString(l)
		p.ReadBuffer.WriteByte('\n')
	}
	p.readCond.Broadcast()
}

// Hangup makes reads return io.EOF once the buffer drains, like a tracker
// closing its end.
func (p *TestablePort) Hangup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.eof = true
	p.readCond.Broadcast()
}

// Written returns everything written to the port.
func (p *TestablePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.WriteBuffer.String()
}
