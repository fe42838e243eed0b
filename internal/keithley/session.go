// internal/keithley/session.go
package keithley

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// session is the Instrument Handle: one open transport plus its traffic log.
type session struct {
	t     scpi.Transport
	model string
	log   zerolog.Logger
}

func (s *session) Write(cmd string) error {
	s.log.Debug().Str("cmd", cmd).Msg("scpi write")
	writesTotal.WithLabelValues(s.model).Inc()
	if err := s.t.Write(cmd); err != nil {
		queryFailuresTotal.WithLabelValues(s.model).Inc()
		return errors.Wrapf(err, "write %q", cmd)
	}
	return nil
}

// writeAll stops at the first failing command.
func (s *session) writeAll(cmds ...string) error {
	for _, cmd := range cmds {
		if err := s.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) Query(cmd string) (string, error) {
	queriesTotal.WithLabelValues(s.model).Inc()
	reply, err := s.t.Query(cmd)
	if err != nil {
		queryFailuresTotal.WithLabelValues(s.model).Inc()
		return "", errors.Wrapf(err, "query %q", cmd)
	}
	s.log.Debug().Str("cmd", cmd).Str("reply", reply).Msg("scpi query")
	return reply, nil
}

func (s *session) timeout() time.Duration     { return s.t.Timeout() }
func (s *session) setTimeout(d time.Duration) { s.t.SetTimeout(d) }
func (s *session) close() error               { return s.t.Close() }
