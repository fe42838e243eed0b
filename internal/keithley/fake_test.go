// internal/keithley/fake_test.go
package keithley

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// fakeTransport records writes and answers queries from a script.
type fakeTransport struct {
	writes   []string
	queries  []string
	scripted map[string][]string // consumed first, in order
	defaults map[string]string
	failing  map[string]bool
	timeout  time.Duration
	closed   bool
}

func newFake(model string) *fakeTransport {
	return &fakeTransport{
		scripted: map[string][]string{},
		defaults: map[string]string{
			"*IDN?":     "KEITHLEY INSTRUMENTS INC.,MODEL " + model + ",1150720,B06  /A02",
			"*OPT?":     "7706,7700",
			"SYST:ERR?": NoError,
		},
		failing: map[string]bool{},
	}
}

func (f *fakeTransport) script(cmd string, replies ...string) {
	f.scripted[cmd] = append(f.scripted[cmd], replies...)
}

func (f *fakeTransport) Write(cmd string) error {
	if f.closed {
		return errors.Wrap(scpi.ErrState, "fake closed")
	}
	f.writes = append(f.writes, cmd)
	return nil
}

func (f *fakeTransport) Query(cmd string) (string, error) {
	if f.closed {
		return "", errors.Wrap(scpi.ErrState, "fake closed")
	}
	f.queries = append(f.queries, cmd)
	if f.failing[cmd] {
		return "", errors.Wrapf(scpi.ErrProtocol, "no reply to %q", cmd)
	}
	if q := f.scripted[cmd]; len(q) > 0 {
		f.scripted[cmd] = q[1:]
		return q[0], nil
	}
	if r, ok := f.defaults[cmd]; ok {
		return r, nil
	}
	return "", errors.Wrapf(scpi.ErrProtocol, "no reply to %q", cmd)
}

func (f *fakeTransport) Timeout() time.Duration { return f.timeout }

func (f *fakeTransport) SetTimeout(d time.Duration) { f.timeout = d }

func (f *fakeTransport) Close() error {
	if f.closed {
		return errors.Wrap(scpi.ErrState, "fake already closed")
	}
	f.closed = true
	return nil
}

// resetLog forgets the traffic recorded so far.
func (f *fakeTransport) resetLog() {
	f.writes = nil
	f.queries = nil
}

func (f *fakeTransport) opener() scpi.Opener {
	return func(resource string, opts scpi.Options) (scpi.Transport, error) {
		f.timeout = opts.Timeout
		return f, nil
	}
}

func (f *fakeTransport) wrote(cmd string) bool {
	for _, w := range f.writes {
		if w == cmd {
			return true
		}
	}
	return false
}

func entry(key string, fields map[string]any) config.ChannelEntry {
	return config.ChannelEntry{Key: key, Fields: fields, IsMap: true}
}

func table(entries ...config.ChannelEntry) config.ChannelTable {
	return config.ChannelTable(entries)
}

func rearConfig(modules map[string]config.ModuleConfig) config.InstrumentConfig {
	return config.InstrumentConfig{
		ResourceName: "TCPIP0::10.0.0.1::1394::SOCKET",
		Panel:        config.PanelRear,
		TimeoutMs:    10000,
		Modules:      modules,
	}
}
