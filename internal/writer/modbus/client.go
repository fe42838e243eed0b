// internal/writer/modbus/client.go
package modbus

import (
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
)

// maxRegistersPerWrite is the FC16 quantity limit.
const maxRegistersPerWrite = 123

// EndpointClient is a single TCP connection to one Modbus server.
// It serializes requests because it mutates SlaveId per write.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}

	if err := h.Connect(); err != nil {
		return nil, errors.Wrapf(err, "writer modbus: connect %s", cfg.Endpoint)
	}

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes holding registers with FC16, split into
// requests the protocol allows.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	for start := 0; start < len(regs); start += maxRegistersPerWrite {
		end := start + maxRegistersPerWrite
		if end > len(regs) {
			end = len(regs)
		}
		chunk := regs[start:end]
		at := addr + uint16(start)
		if _, err := c.client.WriteMultipleRegisters(at, uint16(len(chunk)), packRegisters(chunk)); err != nil {
			return errors.Wrapf(err, "writer modbus: unit=%d addr=%d qty=%d", unitID, at, len(chunk))
		}
	}
	return nil
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
