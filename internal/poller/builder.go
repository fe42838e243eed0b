// internal/poller/builder.go
package poller

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/keithley"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// Build opens the instrument, brings it into its configured mode and wraps
// it in a Poller. The returned closer releases the instrument.
// A nil opener uses scpi.Open.
func Build(inst config.Instrument, opener scpi.Opener, log zerolog.Logger) (*Poller, func() error, error) {
	log = log.With().Str("instrument", inst.ID).Logger()

	var (
		driver Instrument
		closer func() error
		err    error
	)
	if inst.ModelName == keithley.Model2100 {
		driver, closer, err = build2100(inst, opener, log)
	} else {
		driver, closer, err = build27XX(inst, opener, log)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "instrument %s", inst.ID)
	}

	p, err := New(
		Config{
			InstrumentID: inst.ID,
			Model:        inst.ModelName,
			Interval:     time.Duration(inst.Poll.IntervalMs) * time.Millisecond,
		},
		driver,
	)
	if err != nil {
		release(closer, log)
		return nil, nil, err
	}
	return p, closer, nil
}

// release closes an instrument whose setup failed. The setup error is the
// one reported, so a close failure is only logged.
func release(closer func() error, log zerolog.Logger) {
	if err := closer(); err != nil {
		log.Debug().Err(err).Msg("release after failed setup")
	}
}

func build2100(inst config.Instrument, opener scpi.Opener, log zerolog.Logger) (Instrument, func() error, error) {
	k := keithley.New2100(inst.InstrumentConfig, opener, log)
	if err := k.Open(); err != nil {
		return nil, nil, err
	}

	var opts []keithley.ConfOption
	if inst.Range != nil {
		opts = append(opts, keithley.WithRange(*inst.Range))
	}
	if inst.Resolution != nil {
		opts = append(opts, keithley.WithResolution(*inst.Resolution))
	}
	if err := k.SetMode(inst.Mode, opts...); err != nil {
		release(k.Close, log)
		return nil, nil, err
	}
	return k, k.Close, nil
}

func build27XX(inst config.Instrument, opener scpi.Opener, log zerolog.Logger) (Instrument, func() error, error) {
	k := keithley.New27XX(inst.ModelName, inst.InstrumentConfig, opener, log)
	if err := k.Open(); err != nil {
		return nil, nil, err
	}

	selection := inst.Mode
	if inst.Panel == config.PanelRear {
		if err := k.ConfigurationSequence(); err != nil {
			release(k.Close, log)
			return nil, nil, err
		}
		if !strings.HasPrefix(selection, "SCAN_") {
			selection = "SCAN_" + selection
		}
	}
	channels, err := k.SetMode(selection)
	if err != nil {
		release(k.Close, log)
		return nil, nil, err
	}
	log.Info().Str("mode", selection).Str("channels", channels).Msg("instrument ready")
	return k, k.Close, nil
}
