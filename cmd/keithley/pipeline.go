// cmd/keithley/pipeline.go
package main

import (
	"context"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/metrics"
	"github.com/tamzrod/keithley-scan/internal/poller"
	"github.com/tamzrod/keithley-scan/internal/scpi"
	"github.com/tamzrod/keithley-scan/internal/status"
	"github.com/tamzrod/keithley-scan/internal/writer"
)

var (
	healthGauge = metrics.MustRegisterGaugeVec("status",
		"health",
		"Health code of the instrument status block",
		"instrument")
	secondsInErrorGauge = metrics.MustRegisterGaugeVec("status",
		"seconds_in_error",
		"Seconds the instrument has been in error",
		"instrument")
	sinkFailuresTotal = metrics.MustRegisterCounter("writer",
		"failures_total",
		"Number of poll results at least one sink failed to deliver")
)

// pollSource is what the pipeline needs from a poller.
type pollSource interface {
	ID() string
	PollOnce() poller.PollResult
	Run(ctx context.Context, out chan<- poller.PollResult)
}

// pipeline owns one instrument: its poller, its sinks and its status.
type pipeline struct {
	id      string
	source  pollSource
	data    writer.Writer
	status  writer.StatusWriter // nil when disabled
	tracker *status.Tracker
	log     zerolog.Logger

	metricsFile string
	closers     []func() error
}

func newPipeline(id string, source pollSource, data writer.Writer, log zerolog.Logger) *pipeline {
	return &pipeline{
		id:      id,
		source:  source,
		data:    data,
		tracker: status.NewTracker(),
		log:     log.With().Str("instrument", id).Logger(),
	}
}

// Run polls until ctx is done. Runner-owned state plus a 1 Hz seconds ticker.
func (pl *pipeline) Run(ctx context.Context) error {
	out := make(chan poller.PollResult)
	go pl.source.Run(ctx, out)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert)
	pl.writeStatus()

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-out:
			pl.handle(res)

		case <-secTicker.C:
			if pl.tracker.Tick() {
				pl.writeStatus()
			}
		}
	}
}

// PollOnce runs a single poll through every sink.
func (pl *pipeline) PollOnce() poller.PollResult {
	pl.writeStatus()
	res := pl.source.PollOnce()
	pl.handle(res)
	return res
}

func (pl *pipeline) handle(res poller.PollResult) {
	code := scpi.Code(res.Err)
	if res.Err != nil {
		pl.log.Error().Err(res.Err).Uint16("code", code).Str("raw", res.Raw).Msg("poll failed")
	} else {
		pl.log.Debug().Int("values", len(res.Values())).Msg("poll ok")
	}

	// --- data delivery ---
	if err := pl.data.Write(res); err != nil {
		sinkFailuresTotal.Inc()
		pl.log.Warn().Err(err).Msg("writer error")
	}

	// --- status update ---
	if pl.tracker.Observe(code) {
		pl.writeStatus()
	}

	if pl.metricsFile != "" {
		if err := metrics.WriteTextfile(pl.metricsFile); err != nil {
			pl.log.Warn().Err(err).Msg("metrics write failed")
		}
	}
}

func (pl *pipeline) writeStatus() {
	snap := pl.tracker.Snapshot()
	healthGauge.WithLabelValues(pl.id).Set(float64(snap.Health))
	secondsInErrorGauge.WithLabelValues(pl.id).Set(float64(snap.SecondsInError))

	if pl.status == nil {
		return
	}
	if err := pl.status.WriteStatus(snap); err != nil {
		pl.log.Warn().Err(err).Msg("status write failed")
	}
}

// Close releases Modbus clients and the instrument.
func (pl *pipeline) Close() error {
	var ae aerr.AggregateError
	for _, fn := range pl.closers {
		if err := fn(); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}
