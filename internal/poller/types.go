// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/keithley-scan/internal/keithley"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	InstrumentID string
	Model        string
	At           time.Time

	Raw        string // reply as received, for diagnostics
	Series     []keithley.Series
	Timestamps []float64

	Err error // non-nil means the poll cycle failed
}

// Values flattens every series in order.
func (r PollResult) Values() []float64 {
	return keithley.Sample{Series: r.Series}.Values()
}
