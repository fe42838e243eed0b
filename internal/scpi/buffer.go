// internal/scpi/buffer.go
package scpi

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reading buffer layout: <measurement><unit>,<timestamp><unit>,<reading count>, repeated.
const (
	groupStride      = 3
	measurementField = 0
	timestampField   = 1
)

// Buffer is one parsed FETCH? reply.
type Buffer struct {
	Raw          string
	Measurements []float64
	Timestamps   []float64
}

// LastDigitIndex returns the index of the last decimal digit in s, scanning
// from the end, or -1 when s holds no digit.
func LastDigitIndex(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			return i
		}
	}
	return -1
}

// StripUnit cuts the trailing unit suffix from a reading token.
// "+1.234560E+00VDC" becomes "+1.234560E+00". Clean tokens are returned as is.
func StripUnit(token string) (string, error) {
	i := LastDigitIndex(token)
	if i < 0 {
		return "", errors.Wrapf(ErrParse, "token %q holds no digit", token)
	}
	return token[:i+1], nil
}

// ParseBuffer splits a reading buffer reply into measurements and timestamps.
// With oneShot set the timestamps are not parsed and a single zero is
// reported instead; the instrument has no meaningful time base outside a scan.
func ParseBuffer(reply string, oneShot bool) (Buffer, error) {
	tokens := strings.Split(reply, ",")
	buf := Buffer{Raw: reply}

	measurements, err := parseGroup(tokens, measurementField)
	if err != nil {
		return buf, errors.Wrap(err, "measurements")
	}
	buf.Measurements = measurements

	if oneShot {
		buf.Timestamps = []float64{0}
		return buf, nil
	}

	timestamps, err := parseGroup(tokens, timestampField)
	if err != nil {
		return buf, errors.Wrap(err, "timestamps")
	}
	if len(timestamps) != len(measurements) {
		return buf, errors.Wrapf(ErrParse, "truncated reply: %d measurements, %d timestamps",
			len(measurements), len(timestamps))
	}
	buf.Timestamps = timestamps
	return buf, nil
}

// ParseReading converts a bare numeric reply such as "+1.23456789E+00".
func ParseReading(reply string) (float64, error) {
	s := strings.TrimSpace(reply)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "reading %q is not numeric", s)
	}
	return v, nil
}

func parseGroup(tokens []string, offset int) ([]float64, error) {
	var out []float64
	for i := offset; i < len(tokens); i += groupStride {
		v, err := parseToken(strings.TrimSpace(tokens[i]))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseToken strips the unit and converts the number. Units holding a digit
// (4-wire ohms report OHM4W) defeat the last digit cut; the leading numeric
// part is used then.
func parseToken(token string) (float64, error) {
	clean, err := StripUnit(token)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseFloat(clean, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseFloat(numericPrefix(token), 64); err == nil {
		return v, nil
	}
	return 0, errors.Wrapf(ErrParse, "token %q is not numeric", token)
}

// numericPrefix returns the longest leading [sign]digits[.digits][e[sign]digits].
func numericPrefix(s string) string {
	i := 0
	digits := func() {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits()
	if i < len(s) && s[i] == '.' {
		i++
		digits()
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		digits()
		if i == start {
			i = j
		}
	}
	return s[:i]
}
