// internal/poller/poller.go
package poller

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/keithley"
)

// Instrument is what the poller needs from a driver.
type Instrument interface {
	Sample() (keithley.Sample, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	InstrumentID string
	Model        string
	Interval     time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg  Config
	inst Instrument
}

// New creates a poller with immutable config.
func New(cfg Config, inst Instrument) (*Poller, error) {
	if cfg.InstrumentID == "" {
		return nil, errors.New("poller: instrument id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if inst == nil {
		return nil, errors.New("poller: instrument required")
	}
	return &Poller{cfg: cfg, inst: inst}, nil
}

// ID returns the instrument id.
func (p *Poller) ID() string { return p.cfg.InstrumentID }

// PollOnce performs exactly one acquisition.
// All-or-nothing: a failed acquisition carries no values.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		InstrumentID: p.cfg.InstrumentID,
		Model:        p.cfg.Model,
		At:           time.Now(),
	}

	s, err := p.inst.Sample()
	res.Raw = s.Raw
	if err != nil {
		res.Err = errors.Wrapf(err, "poll %s", p.cfg.InstrumentID)
		pollsTotal.WithLabelValues(p.cfg.InstrumentID, "error").Inc()
		return res
	}

	// Commit only if the acquisition succeeded
	res.Series = s.Series
	res.Timestamps = s.Timestamps
	pollsTotal.WithLabelValues(p.cfg.InstrumentID, "ok").Inc()
	return res
}
