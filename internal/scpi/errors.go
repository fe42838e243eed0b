// internal/scpi/errors.go
package scpi

import (
	"github.com/pkg/errors"
)

// Failure kinds. Callers wrap these with context and classify with errors.Cause.
var (
	// ErrConnection: transport open/close failure. Fatal, never retried.
	ErrConnection = errors.New("connection error")
	// ErrProtocol: no reply, timeout or malformed framing.
	ErrProtocol = errors.New("protocol error")
	// ErrParse: a reply token could not be turned into a number.
	ErrParse = errors.New("parse error")
	// ErrInvalidMode: unsupported measurement mode argument.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidConfiguration: malformed static channel configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrState: operation not allowed in the current handle state.
	ErrState = errors.New("invalid state")
)

// Status block codes for each failure kind.
const (
	CodeNone                 uint16 = 0
	CodeConnection           uint16 = 1
	CodeProtocol             uint16 = 2
	CodeParse                uint16 = 3
	CodeInvalidMode          uint16 = 4
	CodeInvalidConfiguration uint16 = 5
	CodeState                uint16 = 6
	CodeUnknown              uint16 = 255
)

// Code maps an error to its stable numeric code.
func Code(err error) uint16 {
	if err == nil {
		return CodeNone
	}
	switch errors.Cause(err) {
	case ErrConnection:
		return CodeConnection
	case ErrProtocol:
		return CodeProtocol
	case ErrParse:
		return CodeParse
	case ErrInvalidMode:
		return CodeInvalidMode
	case ErrInvalidConfiguration:
		return CodeInvalidConfiguration
	case ErrState:
		return CodeState
	}
	return CodeUnknown
}

// IsConnection reports whether err is caused by ErrConnection.
func IsConnection(err error) bool { return errors.Cause(err) == ErrConnection }

// IsProtocol reports whether err is caused by ErrProtocol.
func IsProtocol(err error) bool { return errors.Cause(err) == ErrProtocol }

// IsParse reports whether err is caused by ErrParse.
func IsParse(err error) bool { return errors.Cause(err) == ErrParse }

// IsInvalidMode reports whether err is caused by ErrInvalidMode.
func IsInvalidMode(err error) bool { return errors.Cause(err) == ErrInvalidMode }

// IsInvalidConfiguration reports whether err is caused by ErrInvalidConfiguration.
func IsInvalidConfiguration(err error) bool { return errors.Cause(err) == ErrInvalidConfiguration }

// IsState reports whether err is caused by ErrState.
func IsState(err error) bool { return errors.Cause(err) == ErrState }
