// internal/keithley/mode_test.go
package keithley

import (
	"testing"

	"github.com/tamzrod/keithley-scan/internal/scpi"
)

func TestModeTable(t *testing.T) {
	cases := []struct {
		name     string
		function string
		mode     Mode
		quantity string
	}{
		{"VDC", "VOLT:DC", ModeVDC, "Voltage"},
		{"VAC", "VOLT:AC", ModeVAC, "Voltage"},
		{"IDC", "CURR:DC", ModeIDC, "Current"},
		{"IAC", "CURR:AC", ModeIAC, "Current"},
		{"R2W", "RES", ModeR2W, "Resistance"},
		{"R4W", "FRES", ModeR4W, "Resistance"},
		{"FREQ", "FREQ", ModeFreq, "Frequency"},
		{"TEMP", "TEMP", ModeTemp, "Temperature"},
	}

	for _, c := range cases {
		for _, in := range []string{c.name, c.function, " " + c.function + " "} {
			m, err := ParseMode(in)
			if err != nil {
				t.Fatalf("%q: unexpected error: %v", in, err)
			}
			if m != c.mode || m.Function() != c.function || m.Quantity() != c.quantity {
				t.Fatalf("%q: got %s/%s/%s", in, m, m.Function(), m.Quantity())
			}
		}
	}
}

func TestParseMode_CaseInsensitive(t *testing.T) {
	m, err := ParseMode("volt:ac")
	if err != nil || m != ModeVAC {
		t.Fatalf("got %s, %v", m, err)
	}
	if !m.IsAC() || m.IsCurrent() {
		t.Fatalf("VAC flags wrong")
	}
	for _, in := range []string{"LIST", "scan_list"} {
		if m, err := ParseMode(in); err != nil || m != ModeScanList {
			t.Fatalf("%q: got %s, %v", in, m, err)
		}
	}
}

func TestParseMode_Unknown(t *testing.T) {
	if _, err := ParseMode("OHM"); !scpi.IsInvalidMode(err) {
		t.Fatalf("expected invalid mode error, got %v", err)
	}
}
