// internal/scpi/transport.go
package scpi

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout is the reply timeout applied when Options leaves it unset.
const DefaultTimeout = 10 * time.Second

const (
	// resyncMarker is answered once every earlier command has completed.
	resyncMarker = "*OPC?"
	// resyncTimeouts is the reply budget of a resync, in reply timeouts.
	resyncTimeouts = 4
)

// Transport is a line-oriented request/reply channel to one SCPI instrument.
// It is not safe for concurrent use; one request is in flight at a time.
type Transport interface {
	// Write sends one command; no reply is expected.
	Write(cmd string) error
	// Query sends one command and returns its reply without the terminator.
	Query(cmd string) (string, error)
	Timeout() time.Duration
	SetTimeout(d time.Duration)
	Close() error
}

// Opener opens a transport for a resource name.
type Opener func(resource string, opts Options) (Transport, error)

// Options configures a transport.
type Options struct {
	Timeout time.Duration

	// Serial framing; ignored for sockets.
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BaudRate <= 0 {
		o.BaudRate = 9600
	}
	if o.DataBits <= 0 {
		o.DataBits = 8
	}
	if o.StopBits <= 0 {
		o.StopBits = 1
	}
	if o.Parity == "" {
		o.Parity = "N"
	}
	return o
}

// Open parses the resource name and opens the matching transport.
func Open(resource string, opts Options) (Transport, error) {
	r, err := ParseResource(resource)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch r.Kind {
	case ResourceSocket:
		return openSocket(r, opts)
	case ResourceSerial:
		return openSerial(r, opts)
	}
	return nil, errors.Wrapf(ErrConnection, "resource %q: unsupported interface", resource)
}

// deadliner is implemented by connections that honour read/write deadlines.
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// stream frames commands and replies with '\n' over a byte stream.
type stream struct {
	name    string
	conn    io.ReadWriteCloser
	dl      deadliner
	rd      *bufio.Reader
	timeout time.Duration
	closed  bool

	// stale is set when a reply was not read in time; it may still arrive.
	stale bool
}

func newStream(name string, conn io.ReadWriteCloser, dl deadliner, timeout time.Duration) *stream {
	return &stream{
		name:    name,
		conn:    conn,
		dl:      dl,
		rd:      bufio.NewReader(conn),
		timeout: timeout,
	}
}

func (s *stream) Write(cmd string) error {
	if s.closed {
		return errors.Wrapf(ErrState, "%s: transport closed", s.name)
	}
	if s.stale {
		if err := s.resync(); err != nil {
			return err
		}
	}
	return s.send(cmd)
}

func (s *stream) send(cmd string) error {
	if err := s.dl.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return errors.Wrapf(ErrProtocol, "%s: set write deadline: %v", s.name, err)
	}
	if _, err := io.WriteString(s.conn, cmd+"\n"); err != nil {
		return errors.Wrapf(ErrProtocol, "%s: write %q: %v", s.name, cmd, err)
	}
	return nil
}

func (s *stream) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}
	if err := s.dl.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", errors.Wrapf(ErrProtocol, "%s: set read deadline: %v", s.name, err)
	}
	line, err := s.rd.ReadString('\n')
	if err != nil {
		s.stale = true
		return "", errors.Wrapf(ErrProtocol, "%s: no reply to %q within %s: %v", s.name, cmd, s.timeout, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// resync discards late replies. The instrument answers in order, so every
// line before the marker reply belongs to an earlier, timed out query.
func (s *stream) resync() error {
	if err := s.send(resyncMarker); err != nil {
		return err
	}
	budget := resyncTimeouts * s.timeout
	if err := s.dl.SetReadDeadline(time.Now().Add(budget)); err != nil {
		return errors.Wrapf(ErrProtocol, "%s: set read deadline: %v", s.name, err)
	}
	for {
		line, err := s.rd.ReadString('\n')
		if err != nil {
			return errors.Wrapf(ErrProtocol, "%s: out of sync, no reply to %s within %s: %v", s.name, resyncMarker, budget, err)
		}
		if isMarkerReply(line) {
			s.stale = false
			return nil
		}
	}
}

// isMarkerReply accepts "1", bare or wrapped in one character on each side
// as the 2750 does.
func isMarkerReply(line string) bool {
	v := strings.TrimSpace(line)
	return v == "1" || (len(v) == 3 && v[1] == '1')
}

func (s *stream) Timeout() time.Duration { return s.timeout }

func (s *stream) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *stream) Close() error {
	if s.closed {
		return errors.Wrapf(ErrState, "%s: transport already closed", s.name)
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return errors.Wrapf(ErrConnection, "%s: close: %v", s.name, err)
	}
	return nil
}
