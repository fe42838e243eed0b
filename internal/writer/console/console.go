// internal/writer/console/console.go
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/poller"
)

// Console prints one line per channel value.
// It is shared by every instrument pipeline.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Console { return &Console{w: w} }

func (c *Console) Write(res poller.PollResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := res.At.Format(time.RFC3339)
	if res.Err != nil {
		_, err := fmt.Fprintf(c.w, "%s instrument=%s error=%q\n", at, res.InstrumentID, res.Err.Error())
		return errors.Wrap(err, "console")
	}
	for _, s := range res.Series {
		for i, v := range s.Values {
			label := ""
			if i < len(s.Labels) {
				label = s.Labels[i]
			}
			if _, err := fmt.Fprintf(c.w, "%s instrument=%s quantity=%s mode=%s channel=%q value=%.6E\n",
				at, res.InstrumentID, s.Name, s.Mode, label, v); err != nil {
				return errors.Wrap(err, "console")
			}
		}
	}
	return nil
}
