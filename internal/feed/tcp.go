package feed

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DialTCP connects to a tracker streaming samples over TCP.
func DialTCP(ctx context.Context, addr string, timeout time.Duration) (*Mux[net.Conn], error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tracker at %s: %w", addr, err)
	}
	return NewMux[net.Conn](conn), nil
}
