// internal/writer/types.go
package writer

import "github.com/tamzrod/keithley-scan/internal/poller"

// Target is one Modbus data destination: readings land as float32 register
// pairs starting at Address.
type Target struct {
	Endpoint string
	UnitID   uint8
	Address  uint16
}

// StatusPlan is one status block destination.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one instrument.
type Plan struct {
	InstrumentID string
	Targets      []Target
	Status       []StatusPlan // empty means status is disabled
}

// Writer delivers poll snapshots to one sink.
type Writer interface {
	Write(res poller.PollResult) error
}
