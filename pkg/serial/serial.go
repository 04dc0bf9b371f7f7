// Package serial opens a serial port as a G-code line source, for
// driving the planner from a hardware sender instead of a file.
package serial

import (
	"time"

	"github.com/tarm/serial"

	"tinyg-go-migration/pkg/errors"
)

// Config describes the serial G-code source.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig returns the conventional 115200 8N1 setup.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Port is an open serial connection. Reads time out per Config so the
// caller's read loop can poll for shutdown.
type Port struct {
	port *serial.Port
	cfg  Config
}

// Open opens the configured device.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New(errors.ErrConfigValidation, "serial device not set")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRuntime, "open serial port "+cfg.Device)
	}
	return &Port{port: p, cfg: cfg}, nil
}

func (p *Port) Read(buf []byte) (int, error) {
	return p.port.Read(buf)
}

// Write sends a response line back to the sender.
func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

func (p *Port) Close() error {
	return p.port.Close()
}

// Device returns the configured device path.
func (p *Port) Device() string {
	return p.cfg.Device
}
