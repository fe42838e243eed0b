// internal/config/config.go
package config

import (
	"sort"
	"strings"
)

type Config struct {
	Keithley map[string]ModelConfig `yaml:"keithley"`
	MQTT     *MQTTConfig            `yaml:"mqtt"`
	Console  bool                   `yaml:"console"`
}

// ---- MODEL ----

type ModelConfig struct {
	Instruments map[string]InstrumentConfig `yaml:"instruments"`
}

// ---- INSTRUMENT ----

type InstrumentConfig struct {
	ResourceName string `yaml:"rsrc_name"`
	ModelName    string `yaml:"model_name"`
	Panel        string `yaml:"panel"` // FRONT | REAR (27XX only)
	Mode         string `yaml:"mode"`
	TimeoutMs    int    `yaml:"timeout_ms"`

	// Single channel models only
	Range      *float64 `yaml:"range"`
	Resolution *float64 `yaml:"resolution"`

	Serial  SerialConfig            `yaml:"serial"`
	Modules map[string]ModuleConfig `yaml:"modules"`
	Poll    PollConfig              `yaml:"poll"`
	Targets []TargetConfig          `yaml:"targets"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
	DeviceName string  `yaml:"device_name"`
}

// SerialConfig only applies to ASRL resources.
type SerialConfig struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// ---- SWITCHING MODULES ----

type ModuleConfig struct {
	ModuleName string       `yaml:"module_name"`
	Channels   ChannelTable `yaml:"channels"`
}

// ---- TARGET ----

type TargetConfig struct {
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`        // data memory
	Address      uint16 `yaml:"address"`        // first holding register
	StatusUnitID *uint8 `yaml:"status_unit_id"` // per-target status memory (optional)
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- SINKS ----

type MQTTConfig struct {
	Server   string `yaml:"server"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // %s is replaced by the instrument id
	Retained bool   `yaml:"retained"`
}

// Instrument is one configured instrument with its position in the tree.
type Instrument struct {
	Family string // "2100", "2701", ...
	ID     string
	InstrumentConfig
}

// Instruments flattens the model/instrument tree in a stable order.
func (c *Config) Instruments() []Instrument {
	var out []Instrument
	for _, family := range sortedKeys(c.Keithley) {
		m := c.Keithley[family]
		for _, id := range sortedKeys(m.Instruments) {
			out = append(out, Instrument{
				Family:           family,
				ID:               id,
				InstrumentConfig: m.Instruments[id],
			})
		}
	}
	return out
}

// ModuleSlots returns the configured MODULE0n keys in slot order.
func (ic InstrumentConfig) ModuleSlots() []string {
	return sortedKeys(ic.Modules)
}

// ReadingCount is the number of values one poll produces for the
// configured panel, used to size Modbus target spans.
func (ic InstrumentConfig) ReadingCount() int {
	if strings.EqualFold(ic.Panel, PanelFront) {
		return 1
	}
	n := 0
	for _, m := range ic.Modules {
		n += len(m.Channels)
	}
	if n == 0 {
		return 1
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
