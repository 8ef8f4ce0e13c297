package mstp

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull indicates the outgoing PDU queue has no free slot.
	ErrQueueFull = errors.New("queue full")
	// ErrPDUTooLong indicates a PDU exceeds the maximum MS/TP data length.
	ErrPDUTooLong = errors.New("pdu too long")
	// ErrShortFrame indicates the encoded frame is truncated.
	ErrShortFrame = errors.New("short frame")
	// ErrBadPreamble indicates the frame doesn't start with 0x55 0xFF.
	ErrBadPreamble = errors.New("bad preamble")
	// ErrHeaderCRC indicates a header CRC mismatch.
	ErrHeaderCRC = errors.New("header crc mismatch")
	// ErrDataCRC indicates a data CRC mismatch.
	ErrDataCRC = errors.New("data crc mismatch")
	// ErrInvalidStation indicates a PDU is addressed to the sending node.
	ErrInvalidStation = errors.New("invalid station address")
)

// ConfigError reports an out-of-range configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
