// internal/writer/fanout.go
package writer

import (
	aerr "github.com/ewoutp/go-aggregate-error"

	"github.com/tamzrod/keithley-scan/internal/poller"
)

type fanout []Writer

// Fanout delivers each result to every writer, in order. A failing writer
// does not stop the others; their errors are aggregated.
func Fanout(writers ...Writer) Writer {
	var out fanout
	for _, w := range writers {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

func (f fanout) Write(res poller.PollResult) error {
	var ae aerr.AggregateError
	for _, w := range f {
		if err := w.Write(res); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}
