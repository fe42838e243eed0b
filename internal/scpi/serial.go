// internal/scpi/serial.go
package scpi

import (
	"io"
	"time"

	"github.com/goburrow/serial"
	"github.com/pkg/errors"
)

// pollInterval bounds a single blocking read on the serial port.
const pollInterval = 100 * time.Millisecond

func openSerial(r Resource, opts Options) (Transport, error) {
	port, err := serial.Open(&serial.Config{
		Address:  r.Address,
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: opts.StopBits,
		Parity:   opts.Parity,
		Timeout:  pollInterval,
	})
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "resource %q: open %s: %v", r.Name, r.Address, err)
	}
	sp := &serialConn{port: port}
	return newStream(r.Name, sp, sp, opts.Timeout), nil
}

// serialConn layers an overall read deadline over the port's short poll
// timeout. serial.ErrTimeout only means nothing arrived during one poll.
type serialConn struct {
	port         io.ReadWriteCloser
	readDeadline time.Time
}

func (c *serialConn) Read(p []byte) (int, error) {
	for {
		n, err := c.port.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != serial.ErrTimeout {
			return 0, err
		}
		if !c.readDeadline.IsZero() && time.Now().After(c.readDeadline) {
			return 0, serial.ErrTimeout
		}
	}
}

func (c *serialConn) Write(p []byte) (int, error) { return c.port.Write(p) }

func (c *serialConn) Close() error { return c.port.Close() }

func (c *serialConn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

// SetWriteDeadline is a no-op; writes complete once the driver buffers them.
func (c *serialConn) SetWriteDeadline(time.Time) error { return nil }
