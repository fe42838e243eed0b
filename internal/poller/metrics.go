// internal/poller/metrics.go
package poller

import (
	"github.com/tamzrod/keithley-scan/internal/metrics"
)

var (
	pollsTotal = metrics.MustRegisterCounterVec("poller",
		"polls_total",
		"Number of poll cycles by outcome",
		"instrument", "result")
)
