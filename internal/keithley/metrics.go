// internal/keithley/metrics.go
package keithley

import (
	"github.com/tamzrod/keithley-scan/internal/metrics"
)

const (
	subSystem = "scpi"
)

var (
	writesTotal = metrics.MustRegisterCounterVec(subSystem,
		"writes_total",
		"Number of SCPI commands written",
		"model")
	queriesTotal = metrics.MustRegisterCounterVec(subSystem,
		"queries_total",
		"Number of SCPI queries issued",
		"model")
	queryFailuresTotal = metrics.MustRegisterCounterVec(subSystem,
		"query_failures_total",
		"Number of SCPI writes or queries that failed",
		"model")
	instrumentErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"instrument_errors_total",
		"Number of entries read from the instrument error queue",
		"model")
	parseFailuresTotal = metrics.MustRegisterCounterVec(subSystem,
		"parse_failures_total",
		"Number of replies that could not be parsed",
		"model")
	acquisitionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"acquisitions_total",
		"Number of successful acquisitions",
		"model")
)
