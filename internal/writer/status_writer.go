// internal/writer/status_writer.go
package writer

import (
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/status"
)

// StatusWriter is the delivery-only contract for instrument status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter writes one status block on one endpoint/unit.
type deviceStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
}

// statusGroup fans a snapshot out to every status destination of an instrument.
type statusGroup []*deviceStatusWriter

// NewStatusWriter builds a status writer if status is enabled for the instrument.
// If plan.Status is empty, status is disabled.
func NewStatusWriter(plan Plan, clients map[string]endpointClient) (StatusWriter, bool) {
	if len(plan.Status) == 0 {
		return nil, false
	}
	var g statusGroup
	for _, sp := range plan.Status {
		g = append(g, newDeviceStatusWriter(sp, clients[sp.Endpoint]))
	}
	return g, true
}

func (g statusGroup) WriteStatus(s status.Snapshot) error {
	var ae aerr.AggregateError
	for _, sw := range g {
		if err := sw.WriteStatus(s); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}

func newDeviceStatusWriter(sp StatusPlan, cli endpointClient) *deviceStatusWriter {
	return &deviceStatusWriter{
		plan:     sp,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}
}

// WriteStatus delivers a status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return errors.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)
		if err := sw.cli.WriteRegisters(unitID, baseAddr, regs); err != nil {
			return errors.Wrapf(err, "status writer: ep=%s unit=%d full block", sw.plan.Endpoint, unitID)
		}
		sw.needFull = false
		sw.last = s
		return nil
	}

	var ae aerr.AggregateError

	// Slot 0: health_code
	if sw.last.Health != s.Health {
		if err := sw.cli.WriteRegisters(unitID, baseAddr+status.SlotHealthCode, []uint16{s.Health}); err != nil {
			ae.Add(errors.Wrap(err, "slot0 health"))
		} else {
			sw.last.Health = s.Health
		}
	}

	// Slot 1: last_error_code
	if sw.last.LastErrorCode != s.LastErrorCode {
		if err := sw.cli.WriteRegisters(unitID, baseAddr+status.SlotLastErrorCode, []uint16{s.LastErrorCode}); err != nil {
			ae.Add(errors.Wrap(err, "slot1 last_error"))
		} else {
			sw.last.LastErrorCode = s.LastErrorCode
		}
	}

	// Slot 2: seconds_in_error
	if sw.last.SecondsInError != s.SecondsInError {
		if err := sw.cli.WriteRegisters(unitID, baseAddr+status.SlotSecondsInError, []uint16{s.SecondsInError}); err != nil {
			ae.Add(errors.Wrap(err, "slot2 seconds"))
		} else {
			sw.last.SecondsInError = s.SecondsInError
		}
	}

	if err := ae.AsError(); err != nil {
		// partial failure: re-assert on next success
		sw.needFull = true
		return errors.Wrapf(err, "status writer: ep=%s unit=%d", sw.plan.Endpoint, unitID)
	}
	return nil
}

// Each instrument owns a fixed SlotsPerDevice block.
func (sw *deviceStatusWriter) baseAddr() uint16 {
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
