// internal/status/constants.go
package status

// Instrument Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per instrument.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the instrument health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the failure kind of the last failed poll (scpi.Code).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the instrument has been in error.
const SlotSecondsInError = 2

// ---- RESERVED RANGE ----

// Slots 3 to 10 are reserved.
const SlotReservedStart = 3
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// The name always sits at the end of the block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// MaxSecondsInError is where the seconds counter saturates.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown is the state before the first poll completes.
const HealthUnknown uint16 = 0

// HealthOK means the last poll produced readings.
const HealthOK uint16 = 1

// HealthError means the last poll failed.
const HealthError uint16 = 2

// HealthStale represents a stale data state.
const HealthStale uint16 = 3

// HealthDisabled represents a disabled instrument.
const HealthDisabled uint16 = 4
