// internal/config/normalize.go
package config

import "strings"

const (
	PanelFront = "FRONT"
	PanelRear  = "REAR"

	DefaultTimeoutMs      = 10000
	DefaultPollIntervalMs = 1000
	DefaultFrontMode      = "VOLT:DC"
	DefaultRearMode       = "LIST"
	DefaultSingleMode     = "VDC"
	DefaultMQTTTopic      = "keithley/%s"
	MaxDeviceNameLength   = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for family, m := range cfg.Keithley {
		for id, ic := range m.Instruments {
			ic.ResourceName = strings.TrimSpace(ic.ResourceName)
			if ic.ModelName == "" {
				ic.ModelName = family
			}
			if ic.TimeoutMs == 0 {
				ic.TimeoutMs = DefaultTimeoutMs
			}
			if ic.Poll.IntervalMs == 0 {
				ic.Poll.IntervalMs = DefaultPollIntervalMs
			}

			ic.Mode = strings.ToUpper(strings.TrimSpace(ic.Mode))
			if family == "2100" {
				ic.Panel = ""
				if ic.Mode == "" {
					ic.Mode = DefaultSingleMode
				}
			} else {
				ic.Panel = strings.ToUpper(ic.Panel)
				if ic.Panel == "" {
					ic.Panel = PanelRear
				}
				if ic.Mode == "" {
					if ic.Panel == PanelFront {
						ic.Mode = DefaultFrontMode
					} else {
						ic.Mode = DefaultRearMode
					}
				}
			}

			if ic.DeviceName == "" {
				ic.DeviceName = id
			}
			if len(ic.DeviceName) > MaxDeviceNameLength {
				ic.DeviceName = ic.DeviceName[:MaxDeviceNameLength]
			}

			m.Instruments[id] = ic
		}
	}

	if cfg.MQTT != nil && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultMQTTTopic
	}
}
