// internal/keithley/instrerror.go
package keithley

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// NoError is the error queue reply when nothing is pending.
const NoError = `0,"No error"`

// InstrumentError is one entry of the instrument's error queue.
type InstrumentError struct {
	Code    int
	Message string
}

func (e InstrumentError) Error() string {
	return fmt.Sprintf("instrument error %d: %s", e.Code, e.Message)
}

// IsNone reports whether the entry means "no error".
func (e InstrumentError) IsNone() bool { return e.Code == 0 }

// ParseInstrumentError parses a SYST:ERR? reply: <code>,"<message>".
func ParseInstrumentError(reply string) (InstrumentError, error) {
	s := strings.TrimSpace(reply)
	i := strings.Index(s, ",")
	if i < 0 {
		return InstrumentError{}, errors.Wrapf(scpi.ErrParse, "error queue reply %q", reply)
	}
	code, err := strconv.Atoi(strings.TrimSpace(s[:i]))
	if err != nil {
		return InstrumentError{}, errors.Wrapf(scpi.ErrParse, "error queue reply %q", reply)
	}
	msg := strings.Trim(strings.TrimSpace(s[i+1:]), `"`)
	return InstrumentError{Code: code, Message: msg}, nil
}
