// internal/writer/builder.go
package writer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tamzrod/keithley-scan/internal/config"
	wmodbus "github.com/tamzrod/keithley-scan/internal/writer/modbus"
)

// BuildPlan converts one instrument config into a writer Plan.
// Assumes config has already passed validation.
func BuildPlan(inst config.Instrument) (Plan, error) {
	if inst.ID == "" {
		return Plan{}, errors.New("writer: instrument id required")
	}

	plan := Plan{InstrumentID: inst.ID}

	for _, t := range inst.Targets {
		plan.Targets = append(plan.Targets, Target{
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Address:  t.Address,
		})

		if inst.StatusSlot != nil && t.StatusUnitID != nil {
			plan.Status = append(plan.Status, StatusPlan{
				Endpoint:   t.Endpoint,
				UnitID:     *t.StatusUnitID,
				BaseSlot:   *inst.StatusSlot,
				DeviceName: inst.DeviceName,
			})
		}
	}

	return plan, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint.
func BuildEndpointClients(inst config.Instrument) (map[string]endpointClient, func() error, error) {
	clients := make(map[string]endpointClient)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, t := range inst.Targets {
		if _, ok := clients[t.Endpoint]; ok {
			continue
		}
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: t.Endpoint,
			Timeout:  time.Duration(inst.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, errors.Wrapf(err, "writer: endpoint %s", t.Endpoint)
		}
		clients[t.Endpoint] = c
		closers = append(closers, c.Close)
	}

	return clients, closeAll, nil
}
