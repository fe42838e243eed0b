// internal/writer/writer.go
package writer

import (
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/poller"
)

// endpointClient is the exact contract the writers use.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type modbusWriter struct {
	plan    Plan
	clients map[string]endpointClient
}

// New builds the Modbus data writer for a plan.
func New(plan Plan, clients map[string]endpointClient) Writer {
	return &modbusWriter{
		plan:    plan,
		clients: clients,
	}
}

// Write delivers every reading of a successful poll to every target.
// Failed polls write nothing; the status block reports them.
func (w *modbusWriter) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}
	values := res.Values()
	if len(values) == 0 {
		return nil
	}
	regs := EncodeFloat32(values)

	var ae aerr.AggregateError
	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			ae.Add(errors.Errorf("writer: missing client for endpoint %s", tgt.Endpoint))
			continue
		}
		if int(tgt.Address)+len(regs) > 0x10000 {
			ae.Add(errors.Errorf("writer: ep=%s unit=%d addr=%d: %d registers overflow the address space",
				tgt.Endpoint, tgt.UnitID, tgt.Address, len(regs)))
			continue
		}
		if err := cli.WriteRegisters(tgt.UnitID, tgt.Address, regs); err != nil {
			ae.Add(errors.Wrapf(err, "writer: ep=%s unit=%d addr=%d", tgt.Endpoint, tgt.UnitID, tgt.Address))
		}
	}
	return ae.AsError()
}
