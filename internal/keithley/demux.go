// internal/keithley/demux.go
package keithley

import (
	"math"
	"strconv"
)

// FrontInputLabel labels a reading taken on the front panel input.
const FrontInputLabel = "Front input"

// ScanState is the part of the driver state that decides how readings map
// onto channels.
type ScanState struct {
	Mode            Mode
	ReadingScanList bool
	OneShot         bool
	Selected        []int // channels of the last rear panel selection
	Index           *ChannelIndex
}

// Series is one named output: a physical quantity and its channel values.
type Series struct {
	Name     string
	Mode     Mode
	Labels   []string
	Channels []int // empty for the front input
	Values   []float64
}

// Sample is one acquisition ready for the sinks.
type Sample struct {
	Raw        string
	Series     []Series
	Timestamps []float64
}

// ChannelLabel formats a rear channel label.
func ChannelLabel(id int) string { return "Channel " + strconv.Itoa(id) }

// Demux groups measurements into named series.
//
// Outside a scan every value belongs to the current mode. While reading a
// scan, values are matched to the selected channels in order and grouped by
// mode. Every selected channel keeps its place; one missing from a short
// reply reads NaN.
func Demux(st ScanState, values []float64) []Series {
	if !st.ReadingScanList {
		s := Series{
			Name:   st.Mode.Quantity(),
			Mode:   st.Mode,
			Values: append([]float64(nil), values...),
		}
		for i := range values {
			if len(st.Selected) == len(values) {
				s.Labels = append(s.Labels, ChannelLabel(st.Selected[i]))
				s.Channels = append(s.Channels, st.Selected[i])
			} else {
				s.Labels = append(s.Labels, FrontInputLabel)
			}
		}
		return []Series{s}
	}

	byChannel := make(map[int]float64, len(st.Selected))
	for i, id := range st.Selected {
		if i < len(values) {
			byChannel[id] = values[i]
		} else {
			byChannel[id] = math.NaN()
		}
	}

	var out []Series
	if st.Index == nil {
		return out
	}
	for _, m := range st.Index.Modes() {
		s := Series{Name: m.Quantity(), Mode: m}
		for _, id := range st.Index.Channels(m) {
			v, ok := byChannel[id]
			if !ok {
				continue
			}
			s.Labels = append(s.Labels, ChannelLabel(id))
			s.Channels = append(s.Channels, id)
			s.Values = append(s.Values, v)
		}
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Values flattens the series in order.
func (s Sample) Values() []float64 {
	var out []float64
	for _, series := range s.Series {
		out = append(out, series.Values...)
	}
	return out
}
