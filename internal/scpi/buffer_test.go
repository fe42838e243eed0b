// internal/scpi/buffer_test.go
package scpi

import (
	"fmt"
	"testing"
)

func TestParseBuffer_ScanReply(t *testing.T) {
	reply := "+1.234560E+00VDC,+0.500SECS,+1RDNG#,-2.000000E-03VDC,+1.000SECS,+2RDNG#"

	buf, err := ParseBuffer(reply, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantM := []float64{1.23456, -0.002}
	wantT := []float64{0.5, 1.0}
	if len(buf.Measurements) != 2 || len(buf.Timestamps) != 2 {
		t.Fatalf("got %d measurements, %d timestamps", len(buf.Measurements), len(buf.Timestamps))
	}
	for i := range wantM {
		if buf.Measurements[i] != wantM[i] {
			t.Fatalf("measurement %d: got %v want %v", i, buf.Measurements[i], wantM[i])
		}
		if buf.Timestamps[i] != wantT[i] {
			t.Fatalf("timestamp %d: got %v want %v", i, buf.Timestamps[i], wantT[i])
		}
	}
	if buf.Raw != reply {
		t.Fatalf("raw reply not kept")
	}
}

func TestParseBuffer_OneShotIgnoresTimestamps(t *testing.T) {
	buf, err := ParseBuffer("+2.5E+01C,garbage,+1RDNG#", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Measurements) != 1 || buf.Measurements[0] != 25 {
		t.Fatalf("got %v", buf.Measurements)
	}
	if len(buf.Timestamps) != 1 || buf.Timestamps[0] != 0 {
		t.Fatalf("one-shot timestamps should be [0], got %v", buf.Timestamps)
	}
}

func TestParseBuffer_NoDigit(t *testing.T) {
	_, err := ParseBuffer("VDC,SECS,RDNG#", false)
	if !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParseBuffer_Truncated(t *testing.T) {
	_, err := ParseBuffer("+1.0E+00VDC", false)
	if !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestStripUnit(t *testing.T) {
	cases := map[string]string{
		"+1.234560E+00VDC": "+1.234560E+00",
		"+2.5E+01C":        "+2.5E+01",
		"+1.5E+02":         "+1.5E+02",
		"12":               "12",
	}
	for in, want := range cases {
		got, err := StripUnit(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
		// stripping a clean token is a no-op
		again, err := StripUnit(got)
		if err != nil || again != got {
			t.Fatalf("%q: not idempotent: %q %v", got, again, err)
		}
	}
}

func TestParseBuffer_SignAndExponent(t *testing.T) {
	buf, err := ParseBuffer("-9.9E+37VDC,+0.000SECS,+1RDNG#", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Measurements[0] != -9.9e37 {
		t.Fatalf("got %v", buf.Measurements[0])
	}
}

func TestParseReading(t *testing.T) {
	v, err := ParseReading(" +1.23456789E+00\n")
	if err != nil || v != 1.23456789 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := ParseReading("OVERFLOW"); !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCode(t *testing.T) {
	if Code(nil) != CodeNone {
		t.Fatalf("nil should map to CodeNone")
	}
	_, err := ParseBuffer("", false)
	if Code(err) != CodeParse {
		t.Fatalf("expected CodeParse, got %d (%v)", Code(err), err)
	}
	if Code(fmt.Errorf("boom")) != CodeUnknown {
		t.Fatalf("foreign errors should map to CodeUnknown")
	}
}

func TestParseBuffer_RoundTrip(t *testing.T) {
	reply := "+1.000000E+00VDC,+0.000000E+00SECS,1,+2.000000E+00VDC,+1.000000E-03SECS,2"

	buf, err := ParseBuffer(reply, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Measurements) != 2 || buf.Measurements[0] != 1.0 || buf.Measurements[1] != 2.0 {
		t.Fatalf("measurements: %v", buf.Measurements)
	}
	if len(buf.Timestamps) != 2 || buf.Timestamps[0] != 0 || buf.Timestamps[1] != 0.001 {
		t.Fatalf("timestamps: %v", buf.Timestamps)
	}

	buf, err = ParseBuffer(reply, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Timestamps) != 1 || buf.Timestamps[0] != 0 {
		t.Fatalf("one-shot timestamps: %v", buf.Timestamps)
	}
}

func TestParseBuffer_UnitWithDigit(t *testing.T) {
	buf, err := ParseBuffer("+1.000000E+02OHM4W,+0.000SECS,+1RDNG#,+2.5E+03OHM4W,+1.000SECS,+2RDNG#", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Measurements[0] != 100 || buf.Measurements[1] != 2500 {
		t.Fatalf("got %v", buf.Measurements)
	}
	if buf.Timestamps[1] != 1 {
		t.Fatalf("got timestamps %v", buf.Timestamps)
	}

	if _, err := ParseBuffer("X1Y,+0.000SECS,+1RDNG#", false); !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestNumericPrefix(t *testing.T) {
	cases := map[string]string{
		"+1.000000E+02OHM4W": "+1.000000E+02",
		"-5OHM4W":            "-5",
		"1.5EX":              "1.5",
		"OHM4W":              "",
	}
	for in, want := range cases {
		if got := numericPrefix(in); got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
	}
}
