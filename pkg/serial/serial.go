// Package serial opens the RS-485 line an MS/TP datalink runs on.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port represents an open serial port.
type Port interface {
	io.ReadWriteCloser

	// Flush discards octets received but not read.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate, one of BaudRates.
	Baud int

	// ReadTimeout bounds a single Read so the datalink keeps checking its
	// timers on a quiet line.
	ReadTimeout time.Duration
}

// BaudRates lists the MS/TP data rates.
var BaudRates = []int{9600, 19200, 38400, 57600, 76800, 115200}

// DefaultBaud is the baud rate used unless configured.
const DefaultBaud = 38400

// DefaultReadTimeout is the read timeout used unless configured.
const DefaultReadTimeout = 10 * time.Millisecond

var (
	// ErrNoDevice indicates the device path is empty.
	ErrNoDevice = errors.New("serial device not specified")
	// ErrBaudRate indicates the baud rate isn't an MS/TP data rate.
	ErrBaudRate = errors.New("unsupported baud rate")
)

// DefaultConfig returns a default configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	for _, rate := range BaudRates {
		if rate == c.Baud {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrBaudRate, c.Baud)
}

// NativePort wraps the tarm/serial implementation.
type NativePort struct {
	port *serial.Port
}

// Open opens a native serial port with 8 data bits, no parity and one
// stop bit.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, ErrNoDevice
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        serial.DefaultSize,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &NativePort{port: port}, nil
}

// Read implements io.Reader. A read timing out on a quiet line returns
// no octets and no error.
func (p *NativePort) Read(b []byte) (int, error) {
	return readTimeout(p.port, b)
}

// Write implements io.Writer.
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close implements io.Closer.
func (p *NativePort) Close() error {
	return p.port.Close()
}

// Flush implements Port.
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// tarm/serial reports an expired ReadTimeout as io.EOF.
func readTimeout(r io.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}
