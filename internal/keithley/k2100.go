// internal/keithley/k2100.go
package keithley

import (
	"strings"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// Model2100 is the single channel multimeter.
const Model2100 = "2100"

var k2100Modes = map[Mode]bool{
	ModeVDC: true, ModeVAC: true, ModeIDC: true, ModeIAC: true, ModeR2W: true, ModeR4W: true,
}

// K2100 drives a 2100 multimeter. It always reads one shot.
type K2100 struct {
	cfg    config.InstrumentConfig
	opener scpi.Opener
	log    zerolog.Logger

	sess     *session
	identity string
	timeout  time.Duration
	mode     Mode
}

// ConfOption adds an optional argument to CONF.
type ConfOption func(*confArgs)

type confArgs struct {
	rng        *float64
	resolution *float64
}

// WithRange sets the expected reading range.
func WithRange(r float64) ConfOption { return func(a *confArgs) { a.rng = &r } }

// WithResolution sets the reading resolution.
func WithResolution(r float64) ConfOption { return func(a *confArgs) { a.resolution = &r } }

// New2100 creates a driver. A nil opener uses scpi.Open.
func New2100(cfg config.InstrumentConfig, opener scpi.Opener, log zerolog.Logger) *K2100 {
	if opener == nil {
		opener = scpi.Open
	}
	timeout := scpi.DefaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return &K2100{
		cfg:     cfg,
		opener:  opener,
		log:     log.With().Str("model", Model2100).Logger(),
		timeout: timeout,
	}
}

func (k *K2100) Open() error {
	if k.sess != nil {
		return errors.Wrapf(scpi.ErrState, "%s already open", k.cfg.ResourceName)
	}
	t, err := openTransport(k.opener, k.cfg, k.timeout)
	if err != nil {
		return err
	}
	k.sess = &session{t: t, model: Model2100, log: k.log}
	k.log.Info().Str("rsrc_name", k.cfg.ResourceName).Msg("Hardware initialized")
	return nil
}

func (k *K2100) requireOpen() error {
	if k.sess == nil {
		return errors.Wrapf(scpi.ErrState, "%s is not open", k.cfg.ResourceName)
	}
	return nil
}

// Identify returns the raw *IDN? reply.
func (k *K2100) Identify() (string, error) {
	if err := k.requireOpen(); err != nil {
		return "", err
	}
	idn, err := k.sess.Query("*IDN?")
	if err != nil {
		return "", err
	}
	k.identity = idn
	return idn, nil
}

// ConfCommand builds CONF:<FUNC>[ range[,resolution]]. A resolution without
// a range uses DEF for the range.
func ConfCommand(mode Mode, opts ...ConfOption) (string, error) {
	if !k2100Modes[mode] {
		return "", errors.Wrapf(scpi.ErrInvalidMode, "mode %s is not supported by the 2100", mode)
	}
	var a confArgs
	for _, o := range opts {
		o(&a)
	}

	cmd := "CONF:" + mode.Function()
	switch {
	case a.rng != nil && a.resolution != nil:
		cmd += " " + formatNumber(*a.rng) + "," + formatNumber(*a.resolution)
	case a.rng != nil:
		cmd += " " + formatNumber(*a.rng)
	case a.resolution != nil:
		cmd += " DEF," + formatNumber(*a.resolution)
	}
	return cmd, nil
}

// SetMode configures the measurement function.
func (k *K2100) SetMode(mode string, opts ...ConfOption) error {
	if err := k.requireOpen(); err != nil {
		return err
	}
	m, err := ParseMode(strings.TrimSpace(mode))
	if err != nil {
		return err
	}
	cmd, err := ConfCommand(m, opts...)
	if err != nil {
		return err
	}
	if err := k.sess.Write(cmd); err != nil {
		return err
	}
	k.mode = m
	return nil
}

// Read takes one reading.
func (k *K2100) Read() (float64, error) {
	if err := k.requireOpen(); err != nil {
		return 0, err
	}
	reply, err := k.sess.Query("READ?")
	if err != nil {
		return 0, err
	}
	v, err := scpi.ParseReading(reply)
	if err != nil {
		parseFailuresTotal.WithLabelValues(Model2100).Inc()
		return 0, err
	}
	acquisitionsTotal.WithLabelValues(Model2100).Inc()
	return v, nil
}

// Acquire takes one reading through the buffer parser.
func (k *K2100) Acquire() (scpi.Buffer, error) {
	if err := k.requireOpen(); err != nil {
		return scpi.Buffer{}, err
	}
	reply, err := k.sess.Query("READ?")
	if err != nil {
		return scpi.Buffer{}, err
	}
	buf, err := scpi.ParseBuffer(reply, true)
	if err != nil {
		parseFailuresTotal.WithLabelValues(Model2100).Inc()
		return buf, err
	}
	acquisitionsTotal.WithLabelValues(Model2100).Inc()
	return buf, nil
}

// Sample acquires one reading labelled with the current mode.
func (k *K2100) Sample() (Sample, error) {
	buf, err := k.Acquire()
	if err != nil {
		return Sample{Raw: buf.Raw}, err
	}
	return Sample{
		Raw:        buf.Raw,
		Series:     Demux(k.State(), buf.Measurements),
		Timestamps: buf.Timestamps,
	}, nil
}

// State reports the 2100 as a one-shot front input instrument.
func (k *K2100) State() ScanState {
	return ScanState{Mode: k.mode, OneShot: true}
}

func (k *K2100) CurrentMode() Mode { return k.mode }

// Close opens all relays and releases the transport.
func (k *K2100) Close() error {
	if err := k.requireOpen(); err != nil {
		return err
	}
	var ae aerr.AggregateError
	ae.Add(k.sess.Write("ROUT:OPEN:ALL"))
	if err := k.sess.close(); err != nil {
		ae.Add(errors.Wrap(err, "close transport"))
	}
	k.sess = nil
	k.log.Info().Msg("communication ended")
	return ae.AsError()
}
