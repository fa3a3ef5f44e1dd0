package feed

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"long parity names", PortOptions{BaudRate: 9600, Parity: " even "}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}, false},
		{"odd two stop bits", PortOptions{StopBits: 2, Parity: "o"}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 2, Parity: "O"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"bad parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, StopBits: 2, Parity: "E"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 57600, DataBits: 8, StopBits: serial.TwoStopBits, Parity: serial.EvenParity}, mode)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
}

func TestOpenSerial(t *testing.T) {
	original := openSerialPort
	t.Cleanup(func() { openSerialPort = original })

	port := NewTestablePort()
	var gotPath string
	var gotMode *serial.Mode
	openSerialPort = func(path string, mode *serial.Mode) (Port, error) {
		gotPath, gotMode = path, mode
		return port, nil
	}

	m, err := OpenSerial("/dev/ttyUSB3", PortOptions{BaudRate: 230400})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", gotPath)
	assert.Equal(t, 230400, gotMode.BaudRate)

	require.NoError(t, m.SendCommand("hello"))
	assert.Equal(t, "hello\n", port.Written())

	openSerialPort = func(string, *serial.Mode) (Port, error) { return nil, errors.New("no such device") }
	_, err = OpenSerial("/dev/missing", PortOptions{})
	assert.ErrorContains(t, err, "no such device")

	_, err = OpenSerial("/dev/ttyUSB3", PortOptions{DataBits: 4})
	assert.Error(t, err)
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("{\"frame\":7}\n"))
		conn.Close()
	}()

	m, err := DialTCP(context.Background(), ln.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	_, c := m.Subscribe()
	require.NoError(t, m.Monitor(context.Background()))
	assert.Equal(t, `{"frame":7}`, recv(t, c))
}

func TestDialTCP_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = DialTCP(context.Background(), addr, 200*time.Millisecond)
	assert.ErrorContains(t, err, "failed to connect to tracker")
}
