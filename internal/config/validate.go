// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// RegistersPerReading is the Modbus footprint of one float32 value.
const RegistersPerReading = 2

// Models lists the supported instrument models.
var Models = []string{"2100", "2700", "2701", "2750"}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Keithley) == 0 {
		return errors.New("no instruments configured")
	}

	type span struct {
		start uint32
		end   uint32
		owner string
	}

	resources := make(map[string]string)

	// key = endpoint | status_unit_id | status_slot
	statusOwner := make(map[string]string)

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, inst := range cfg.Instruments() {
		name := inst.Family + "/" + inst.ID

		if !knownModel(inst.Family) {
			return errors.Errorf("%s: unknown model family %q", name, inst.Family)
		}
		if inst.ModelName != "" && !knownModel(inst.ModelName) {
			return errors.Errorf("%s: unknown model_name %q", name, inst.ModelName)
		}
		if inst.ModelName != "" && (inst.ModelName == "2100") != (inst.Family == "2100") {
			return errors.Errorf("%s: model_name %q does not belong to family %q", name, inst.ModelName, inst.Family)
		}

		// ------------------------------------------------------------
		// RESOURCE
		// ------------------------------------------------------------

		rsrc := strings.TrimSpace(inst.ResourceName)
		if rsrc == "" {
			return errors.Errorf("%s: rsrc_name is required", name)
		}
		if prev, exists := resources[strings.ToUpper(rsrc)]; exists {
			return errors.Errorf("%s: rsrc_name %q already used by %s", name, rsrc, prev)
		}
		resources[strings.ToUpper(rsrc)] = name

		if inst.TimeoutMs < 0 {
			return errors.Errorf("%s: timeout_ms must not be negative", name)
		}
		if inst.Poll.IntervalMs < 0 {
			return errors.Errorf("%s: poll.interval_ms must not be negative", name)
		}

		// ------------------------------------------------------------
		// PANEL AND MODULES (27XX)
		// ------------------------------------------------------------

		if inst.Family != "2100" {
			switch strings.ToUpper(inst.Panel) {
			case "", PanelFront, PanelRear:
			default:
				return errors.Errorf("%s: panel must be FRONT or REAR, got %q", name, inst.Panel)
			}
			for _, slot := range inst.ModuleSlots() {
				if !validModuleSlot(slot) {
					return errors.Errorf("%s: module key %q must look like MODULE01", name, slot)
				}
			}
		}

		// ------------------------------------------------------------
		// DEVICE STATUS BLOCK (PER-TARGET, OPT-IN)
		// ------------------------------------------------------------

		for i := 0; i < len(inst.DeviceName); i++ {
			if inst.DeviceName[i] > 0x7F {
				return errors.Errorf("%s: device_name must contain ASCII characters only", name)
			}
		}

		if inst.StatusSlot != nil {
			if len(inst.Targets) == 0 {
				return errors.Errorf("%s: status_slot is set but no targets are defined", name)
			}
			slot := *inst.StatusSlot
			for _, t := range inst.Targets {
				if t.StatusUnitID == nil {
					return errors.Errorf("%s: status_slot is set but target %q has no status_unit_id", name, t.Endpoint)
				}
				key := fmt.Sprintf("%s|%d|%d", t.Endpoint, *t.StatusUnitID, slot)
				if prev, exists := statusOwner[key]; exists {
					return errors.Errorf(
						"status_slot collision: endpoint=%s status_unit_id=%d slot=%d used by %s and %s",
						t.Endpoint, *t.StatusUnitID, slot, prev, name,
					)
				}
				statusOwner[key] = name
			}
		}

		// ------------------------------------------------------------
		// TARGET REGISTER GEOMETRY
		// ------------------------------------------------------------

		count := uint32(inst.ReadingCount() * RegistersPerReading)
		for _, t := range inst.Targets {
			if strings.TrimSpace(t.Endpoint) == "" {
				return errors.Errorf("%s: target endpoint is required", name)
			}
			start := uint32(t.Address)
			end := start + count - 1
			if end > 0xFFFF {
				return errors.Errorf("%s: target %s registers %d-%d exceed the address space", name, t.Endpoint, start, end)
			}

			key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)
			for _, s := range spans[key] {
				// overlap check (inclusive)
				if !(end < s.start || start > s.end) {
					return errors.Errorf(
						"register overlap: endpoint=%s unit_id=%d range=%d-%d of %s overlaps %s range=%d-%d",
						t.Endpoint, t.UnitID, start, end, name, s.owner, s.start, s.end,
					)
				}
			}
			spans[key] = append(spans[key], span{start: start, end: end, owner: name})
		}
	}

	if cfg.MQTT != nil && strings.TrimSpace(cfg.MQTT.Server) == "" {
		return errors.New("mqtt: server is required")
	}

	return nil
}

func knownModel(m string) bool {
	for _, k := range Models {
		if k == m {
			return true
		}
	}
	return false
}

func validModuleSlot(key string) bool {
	if len(key) != len("MODULE01") || !strings.HasPrefix(strings.ToUpper(key), "MODULE0") {
		return false
	}
	n := key[len(key)-1]
	return n >= '1' && n <= '9'
}
