// internal/keithley/mode.go
package keithley

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// Mode is a measurement mode.
type Mode int

const (
	ModeNone Mode = iota
	ModeVDC
	ModeVAC
	ModeIDC
	ModeIAC
	ModeR2W
	ModeR4W
	ModeFreq
	ModeTemp

	// ModeScanList reads every configured channel grouped by mode.
	ModeScanList
)

type modeInfo struct {
	name     string
	function string // SCPI function name
	quantity string
	ac       bool
	current  bool
}

var modeTable = map[Mode]modeInfo{
	ModeVDC:      {name: "VDC", function: "VOLT:DC", quantity: "Voltage"},
	ModeVAC:      {name: "VAC", function: "VOLT:AC", quantity: "Voltage", ac: true},
	ModeIDC:      {name: "IDC", function: "CURR:DC", quantity: "Current", current: true},
	ModeIAC:      {name: "IAC", function: "CURR:AC", quantity: "Current", ac: true, current: true},
	ModeR2W:      {name: "R2W", function: "RES", quantity: "Resistance"},
	ModeR4W:      {name: "R4W", function: "FRES", quantity: "Resistance"},
	ModeFreq:     {name: "FREQ", function: "FREQ", quantity: "Frequency"},
	ModeTemp:     {name: "TEMP", function: "TEMP", quantity: "Temperature"},
	ModeScanList: {name: "SCAN_LIST", function: "SCAN_LIST", quantity: "Scan list"},
}

// MeasurementModes lists the channel modes in their canonical order.
// Scan-list results are grouped in this order.
var MeasurementModes = []Mode{
	ModeVDC, ModeVAC, ModeIDC, ModeIAC, ModeR2W, ModeR4W, ModeFreq, ModeTemp,
}

func (m Mode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return "NONE"
}

// Function returns the SCPI function name, e.g. VOLT:DC.
func (m Mode) Function() string { return modeTable[m].function }

// Quantity returns the physical quantity label used for output series.
func (m Mode) Quantity() string { return modeTable[m].quantity }

// IsAC reports whether the mode measures an AC signal.
func (m Mode) IsAC() bool { return modeTable[m].ac }

// IsCurrent reports whether the mode needs current capable inputs.
func (m Mode) IsCurrent() bool { return modeTable[m].current }

// ParseMode accepts a short name (VDC) or a SCPI function (VOLT:DC),
// case-insensitive. LIST and SCAN_LIST select the scan list.
func ParseMode(s string) (Mode, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "LIST" {
		return ModeScanList, nil
	}
	for m, info := range modeTable {
		if key == info.name || key == info.function {
			return m, nil
		}
	}
	return ModeNone, errors.Wrapf(scpi.ErrInvalidMode, "mode %q", s)
}
