// internal/keithley/channels.go
package keithley

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/config"
	"github.com/tamzrod/keithley-scan/internal/scpi"
)

// Temperature transducers.
const (
	TransducerTC   = "TC"
	TransducerTher = "THER"
	TransducerFRTD = "FRTD"
)

// ChannelSetup is one validated channel configuration entry.
type ChannelSetup struct {
	ID         int
	Mode       Mode
	Range      *float64
	AutoRange  bool
	Resolution *float64
	NPLC       *float64

	// TEMP only
	Transducer  string
	Type        string
	RefJunction string // TC only
}

// ResolveChannel validates a raw entry. Nothing is written to the
// instrument for an entry that fails here.
func ResolveChannel(e config.ChannelEntry) (ChannelSetup, error) {
	if !e.IsMap {
		return ChannelSetup{}, errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %s must be a mapping", e.Key)
	}
	if len(e.Fields) == 0 {
		return ChannelSetup{}, errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %s is empty", e.Key)
	}

	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[strings.ToLower(k)] = v
	}

	rawMode, ok := fields["mode"]
	if !ok {
		return ChannelSetup{}, errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %s: 'mode' is missing", e.Key)
	}
	mode, err := ParseMode(fmt.Sprint(rawMode))
	if err != nil || mode == ModeScanList {
		return ChannelSetup{}, errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %s: mode %v not recognized", e.Key, rawMode)
	}

	id, err := strconv.Atoi(strings.TrimSpace(e.Key))
	if err != nil || id < 1 {
		return ChannelSetup{}, errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %q is not a channel number", e.Key)
	}

	cs := ChannelSetup{ID: id, Mode: mode}

	if v, ok := fields["range"]; ok {
		if s, isString := v.(string); isString && isAutoRange(s) {
			cs.AutoRange = true
		} else if cs.Range, err = number(v); err != nil {
			return ChannelSetup{}, errors.Wrapf(err, "channel %d: range", id)
		}
	}
	if v, ok := fields["resolution"]; ok {
		if cs.Resolution, err = number(v); err != nil {
			return ChannelSetup{}, errors.Wrapf(err, "channel %d: resolution", id)
		}
	}
	if v, ok := fields["nplc"]; ok {
		if cs.NPLC, err = number(v); err != nil {
			return ChannelSetup{}, errors.Wrapf(err, "channel %d: nplc", id)
		}
	}

	if mode == ModeTemp {
		if err := cs.resolveTemperature(fields); err != nil {
			return ChannelSetup{}, err
		}
	}
	return cs, nil
}

func (cs *ChannelSetup) resolveTemperature(fields map[string]any) error {
	get := func(key string) (string, error) {
		v, ok := fields[key]
		if !ok || v == nil {
			return "", errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %d: TEMP needs %q", cs.ID, key)
		}
		s := strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
		if s == "" {
			return "", errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %d: TEMP needs %q", cs.ID, key)
		}
		return s, nil
	}

	trans, err := get("transducer")
	if err != nil {
		return err
	}
	switch {
	case strings.Contains(trans, TransducerTC):
		cs.Transducer = TransducerTC
	case strings.Contains(trans, TransducerTher):
		cs.Transducer = TransducerTher
	case strings.Contains(trans, TransducerFRTD):
		cs.Transducer = TransducerFRTD
	default:
		return errors.Wrapf(scpi.ErrInvalidConfiguration, "channel %d: transducer %q not recognized", cs.ID, trans)
	}

	if cs.Type, err = get("type"); err != nil {
		return err
	}
	if cs.Transducer == TransducerTC {
		if cs.RefJunction, err = get("ref_junc"); err != nil {
			return err
		}
	}
	return nil
}

// Spec returns the single channel list, e.g. (@101).
func (cs ChannelSetup) Spec() string { return ChannelSpec([]int{cs.ID}) }

// Commands returns the SCPI writes configuring the channel, in order.
func (cs ChannelSetup) Commands() []string {
	spec := cs.Spec()
	fn := cs.Mode.Function()

	cmds := []string{fmt.Sprintf("FUNC '%s',%s", fn, spec)}
	if cs.AutoRange {
		cmds = append(cmds, fn+":RANG:AUTO ON")
	} else if cs.Range != nil {
		cmds = append(cmds, fn+":RANG "+formatNumber(*cs.Range))
	}
	if cs.Resolution != nil {
		cmds = append(cmds, fn+":DIG "+formatNumber(*cs.Resolution))
	}
	if cs.NPLC != nil {
		cmds = append(cmds, fn+":NPLC "+formatNumber(*cs.NPLC))
	}

	switch cs.Transducer {
	case TransducerTC:
		cmds = append(cmds,
			"TEMP:TRAN TC,"+spec,
			"TEMP:TC:TYPE "+cs.Type+","+spec,
			"TEMP:RJUN:RSEL "+cs.RefJunction+","+spec,
		)
	case TransducerTher:
		cmds = append(cmds,
			"TEMP:TRAN THER,"+spec,
			"TEMP:THER:TYPE "+cs.Type+","+spec,
		)
	case TransducerFRTD:
		cmds = append(cmds,
			"TEMP:TRAN FRTD,"+spec,
			"TEMP:FRTD:TYPE "+cs.Type+","+spec,
		)
	}
	return cmds
}

// ChannelIndex maps each mode to its configured channels and keeps the
// global scan order.
type ChannelIndex struct {
	byMode map[Mode][]int
	modeOf map[int]Mode
	order  []int
}

func newChannelIndex() *ChannelIndex {
	return &ChannelIndex{
		byMode: map[Mode][]int{},
		modeOf: map[int]Mode{},
	}
}

// Add records a channel. A channel listed twice keeps its first mode.
func (x *ChannelIndex) Add(id int, m Mode) bool {
	if _, dup := x.modeOf[id]; dup {
		return false
	}
	x.byMode[m] = append(x.byMode[m], id)
	x.modeOf[id] = m
	x.order = append(x.order, id)
	return true
}

// Channels returns the channels configured for m, in configuration order.
func (x *ChannelIndex) Channels(m Mode) []int {
	return append([]int(nil), x.byMode[m]...)
}

// ModeOf returns the mode assigned to a channel.
func (x *ChannelIndex) ModeOf(id int) (Mode, bool) {
	m, ok := x.modeOf[id]
	return m, ok
}

// All returns every configured channel in scan order.
func (x *ChannelIndex) All() []int { return append([]int(nil), x.order...) }

// Len is the number of configured channels.
func (x *ChannelIndex) Len() int { return len(x.order) }

// ScanList is the comma-joined channel list, e.g. 101,102,103.
func (x *ChannelIndex) ScanList() string { return joinInts(x.order) }

// Modes returns the modes that have at least one channel, in canonical order.
func (x *ChannelIndex) Modes() []Mode {
	var out []Mode
	for _, m := range MeasurementModes {
		if len(x.byMode[m]) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// ChannelSpec formats a SCPI channel list, e.g. (@1,2,3).
func ChannelSpec(ids []int) string { return "(@" + joinInts(ids) + ")" }

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func isAutoRange(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "auto" || s == "autorange"
}

func number(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, errors.Wrapf(scpi.ErrInvalidConfiguration, "%q is not a number", n)
		}
		f = parsed
	default:
		return nil, errors.Wrapf(scpi.ErrInvalidConfiguration, "%v is not a number", v)
	}
	return &f, nil
}

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func sortedSlots(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
