// ABOUTME: Error taxonomy for the ODAS frame contract
// ABOUTME: Sentinels for errors.Is plus typed errors carrying frame/slot detail
package odas

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrConfigurationMismatch means the parameters cannot describe the
	// stream. It is fatal: decoding must stop and an operator must fix it.
	ErrConfigurationMismatch = errors.New("odas: configuration mismatch")

	// ErrTruncated means the stream ended in the middle of a frame.
	ErrTruncated = errors.New("odas: stream truncated mid-frame")

	// ErrMalformed means a frame failed a structural check. The frame is
	// skipped and decoding continues on the next frame boundary.
	ErrMalformed = errors.New("odas: malformed frame")

	// ErrNeedMoreData means less than one frame is buffered and the input is still open.
	ErrNeedMoreData = errors.New("odas: need more data")

	// ErrEndOfStream is returned once the input is closed on a frame boundary.
	ErrEndOfStream = io.EOF
)

// ConfigError describes one invalid parameter.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("odas: invalid %s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfigurationMismatch }

// FieldMismatch is one parameter that disagrees between two sides.
type FieldMismatch struct {
	Field  string
	Local  uint32
	Remote uint32
}

// MismatchError reports a handshake that disagrees with the local parameters.
type MismatchError struct {
	Fields []FieldMismatch
}

func (e *MismatchError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s local=%d remote=%d", f.Field, f.Local, f.Remote))
	}
	return "odas: configuration mismatch: " + strings.Join(parts, ", ")
}

func (e *MismatchError) Unwrap() error { return ErrConfigurationMismatch }

// TruncatedError carries how much of the partial frame was buffered.
type TruncatedError struct {
	Frame    uint64 // index the partial frame would have had
	Buffered int
	Want     int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("odas: frame %d truncated: have %d of %d bytes", e.Frame, e.Buffered, e.Want)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// MalformedError identifies the frame and slot that failed validation.
type MalformedError struct {
	Frame  uint64
	Slot   int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("odas: frame %d slot %d malformed: %s", e.Frame, e.Slot, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }
