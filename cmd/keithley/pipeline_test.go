// cmd/keithley/pipeline_test.go
package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tamzrod/keithley-scan/internal/keithley"
	"github.com/tamzrod/keithley-scan/internal/poller"
	"github.com/tamzrod/keithley-scan/internal/scpi"
	"github.com/tamzrod/keithley-scan/internal/status"
)

type fakeSource struct {
	results []poller.PollResult
	polls   int
}

func (f *fakeSource) ID() string { return "bench" }

func (f *fakeSource) PollOnce() poller.PollResult {
	res := f.results[f.polls%len(f.results)]
	f.polls++
	return res
}

func (f *fakeSource) Run(ctx context.Context, out chan<- poller.PollResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case out <- f.PollOnce():
		}
	}
}

type fakeWriter struct {
	results []poller.PollResult
	err     error
}

func (w *fakeWriter) Write(res poller.PollResult) error {
	w.results = append(w.results, res)
	return w.err
}

type fakeStatusWriter struct {
	snaps []status.Snapshot
}

func (w *fakeStatusWriter) WriteStatus(s status.Snapshot) error {
	w.snaps = append(w.snaps, s)
	return nil
}

func okResult() poller.PollResult {
	return poller.PollResult{
		InstrumentID: "bench",
		Series: []keithley.Series{
			{Name: "Voltage", Mode: keithley.ModeVDC, Labels: []string{"Channel 1"}, Channels: []int{1}, Values: []float64{1}},
		},
	}
}

func failedResult() poller.PollResult {
	return poller.PollResult{InstrumentID: "bench", Err: errors.Wrap(scpi.ErrParse, "bad token")}
}

func TestPipeline_StatusFollowsPolls(t *testing.T) {
	src := &fakeSource{results: []poller.PollResult{failedResult(), okResult()}}
	data := &fakeWriter{}
	sw := &fakeStatusWriter{}

	pl := newPipeline("bench", src, data, zerolog.Nop())
	pl.status = sw

	res := pl.PollOnce()
	if res.Err == nil {
		t.Fatalf("first poll should fail")
	}
	// start assert + error change
	if len(sw.snaps) != 2 {
		t.Fatalf("expected 2 status writes, got %d", len(sw.snaps))
	}
	if got := sw.snaps[1]; got.Health != status.HealthError || got.LastErrorCode != scpi.CodeParse {
		t.Fatalf("unexpected error snapshot: %+v", got)
	}

	pl.handle(src.PollOnce())
	if got := sw.snaps[len(sw.snaps)-1]; got != (status.Snapshot{Health: status.HealthOK}) {
		t.Fatalf("expected recovery snapshot, got %+v", got)
	}
	if len(data.results) != 2 {
		t.Fatalf("every result goes to the data writer, got %d", len(data.results))
	}
	if v := testutil.ToFloat64(healthGauge.WithLabelValues("bench")); v != float64(status.HealthOK) {
		t.Fatalf("health gauge: got %v", v)
	}
}

func TestPipeline_UnchangedStatusNotRewritten(t *testing.T) {
	src := &fakeSource{results: []poller.PollResult{okResult()}}
	sw := &fakeStatusWriter{}

	pl := newPipeline("steady", src, &fakeWriter{}, zerolog.Nop())
	pl.status = sw

	pl.handle(src.PollOnce())
	pl.handle(src.PollOnce())
	if len(sw.snaps) != 1 {
		t.Fatalf("expected a single status write, got %d", len(sw.snaps))
	}
}

func TestPipeline_SinkFailureCounted(t *testing.T) {
	src := &fakeSource{results: []poller.PollResult{okResult()}}
	pl := newPipeline("sinkfail", src, &fakeWriter{err: errors.New("broker down")}, zerolog.Nop())

	before := testutil.ToFloat64(sinkFailuresTotal)
	pl.handle(src.PollOnce())
	if got := testutil.ToFloat64(sinkFailuresTotal) - before; got != 1 {
		t.Fatalf("expected 1 sink failure, got %v", got)
	}
}

func TestPipeline_WritesMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keithley.prom")
	src := &fakeSource{results: []poller.PollResult{okResult()}}

	pl := newPipeline("prom", src, &fakeWriter{}, zerolog.Nop())
	pl.metricsFile = path
	pl.PollOnce()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(b), `keithley_status_health{instrument="prom"} 1`) {
		t.Fatalf("health gauge missing from metrics file:\n%s", b)
	}
}

func TestPipeline_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{results: []poller.PollResult{okResult()}}
	data := &fakeWriter{}
	pl := newPipeline("run", src, data, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- pl.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestPipeline_CloseAggregates(t *testing.T) {
	calls := 0
	pl := newPipeline("close", &fakeSource{}, &fakeWriter{}, zerolog.Nop())
	pl.closers = []func() error{
		func() error { calls++; return errors.New("modbus close") },
		func() error { calls++; return nil },
	}
	if err := pl.Close(); err == nil {
		t.Fatalf("expected close error")
	}
	if calls != 2 {
		t.Fatalf("every closer should run, got %d", calls)
	}
}
