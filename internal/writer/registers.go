// internal/writer/registers.go
package writer

import (
	"math"

	"github.com/tamzrod/keithley-scan/internal/config"
)

// RegistersPerValue is the holding register width of one reading.
const RegistersPerValue = config.RegistersPerReading

// EncodeFloat32 packs readings as IEEE-754 float32, high word first.
func EncodeFloat32(values []float64) []uint16 {
	regs := make([]uint16, 0, len(values)*RegistersPerValue)
	for _, v := range values {
		bits := math.Float32bits(float32(v))
		regs = append(regs, uint16(bits>>16), uint16(bits))
	}
	return regs
}
