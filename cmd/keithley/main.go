// cmd/keithley/main.go
package main

import (
	"context"
	"fmt"
	"os"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/poller"
	"github.com/tamzrod/keithley-scan/internal/scpi"
	"github.com/tamzrod/keithley-scan/internal/writer"
	"github.com/tamzrod/keithley-scan/internal/writer/console"
	"github.com/tamzrod/keithley-scan/internal/writer/mqtt"
)

const projectName = "Keithley scan"

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

type options struct {
	configPath  string
	level       string
	metricsFile string
	once        bool
}

func main() {
	var opts options

	pflag.StringVarP(&opts.configPath, "config", "c", "keithley.yaml", "Path of the YAML configuration")
	pflag.StringVarP(&opts.level, "level", "l", "info", "Set log level")
	pflag.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after every poll")
	pflag.BoolVar(&opts.once, "once", false, "Poll every instrument once and exit")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(opts.level)
	if err != nil {
		Exitf("Unknown log level '%s'\n", opts.level)
	}
	logger = logger.Level(level)

	if err := run(opts, logger); err != nil {
		Exitf("%s failed: %v\n", projectName, err)
	}
}

func run(opts options, logger zerolog.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// Prepare to shutdown in a controlled manner
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	shared, closeShared, err := buildSharedSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer closeShared()

	// --------------------
	// Build per-instrument pipelines
	// --------------------

	var pipelines []*pipeline
	defer func() {
		for _, pl := range pipelines {
			if err := pl.Close(); err != nil {
				logger.Warn().Err(err).Str("instrument", pl.id).Msg("release failed")
			}
		}
	}()

	for _, inst := range cfg.Instruments() {
		pl, err := buildPipeline(inst, shared, scpi.Open, opts.metricsFile, logger)
		if err != nil {
			return err
		}
		pipelines = append(pipelines, pl)
	}

	logger.Info().
		Str("version", projectVersion).
		Str("build", projectBuild).
		Int("instruments", len(pipelines)).
		Msgf("Starting %s", projectName)

	if opts.once {
		var ae aerr.AggregateError
		for _, pl := range pipelines {
			if res := pl.PollOnce(); res.Err != nil {
				ae.Add(res.Err)
			}
		}
		return ae.AsError()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pl := range pipelines {
		pl := pl
		g.Go(func() error { return pl.Run(ctx) })
	}
	return g.Wait()
}

// buildSharedSinks creates the sinks every instrument publishes to.
func buildSharedSinks(cfg *config.Config, logger zerolog.Logger) ([]writer.Writer, func(), error) {
	var sinks []writer.Writer
	closeAll := func() {}

	if cfg.Console {
		sinks = append(sinks, console.New(os.Stdout))
	}
	if cfg.MQTT != nil {
		pub, err := mqtt.Connect(*cfg.MQTT)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pub)
		closeAll = func() {
			if err := pub.Close(); err != nil {
				logger.Debug().Err(err).Msg("mqtt close failed")
			}
		}
	}
	return sinks, closeAll, nil
}

// buildPipeline opens the instrument and its Modbus targets.
func buildPipeline(inst config.Instrument, shared []writer.Writer, opener scpi.Opener, metricsFile string, logger zerolog.Logger) (*pipeline, error) {
	p, closeInstrument, err := poller.Build(inst, opener, logger)
	if err != nil {
		return nil, err
	}

	release := func() {
		if err := closeInstrument(); err != nil {
			logger.Debug().Err(err).Str("instrument", inst.ID).Msg("release after failed setup")
		}
	}

	plan, err := writer.BuildPlan(inst)
	if err != nil {
		release()
		return nil, err
	}

	clients, closeClients, err := writer.BuildEndpointClients(inst)
	if err != nil {
		release()
		return nil, errors.Wrapf(err, "instrument %s", inst.ID)
	}

	sinks := append([]writer.Writer{writer.New(plan, clients)}, shared...)
	pl := newPipeline(inst.ID, p, writer.Fanout(sinks...), logger)
	pl.metricsFile = metricsFile
	pl.closers = []func() error{closeClients, closeInstrument}

	if sw, enabled := writer.NewStatusWriter(plan, clients); enabled {
		pl.status = sw
	}
	return pl, nil
}

// Exitf prints the given error message and exits with code 1.
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
