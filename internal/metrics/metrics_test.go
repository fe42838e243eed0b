// internal/metrics/metrics_test.go
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testTotal = MustRegisterCounterVec("test", "things_total", "Number of things", "model")

func TestWriteTextfile(t *testing.T) {
	testTotal.WithLabelValues("2701").Add(3)

	if got := testutil.ToFloat64(testTotal.WithLabelValues("2701")); got != 3 {
		t.Fatalf("counter: got %v want 3", got)
	}

	path := filepath.Join(t.TempDir(), "keithley.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `keithley_test_things_total{model="2701"} 3`) {
		t.Fatalf("metric missing from textfile:\n%s", data)
	}
}
