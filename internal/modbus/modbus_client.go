// Package modbus provides a small RTU client for probing ultrasonic
// level transmitters on the RS485 bus. The regular read path of the
// service goes through the protocol handlers; this client is used by
// the range test tool for one-shot field diagnostics.
package modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// ClientConfig holds the serial parameters for the RS485 bus.
type ClientConfig struct {
	URL      string        // e.g. "rtu:///dev/ttyUSB0"
	BaudRate uint          // e.g. 9600
	DataBits uint          // e.g. 8
	Parity   string        // "N", "E" or "O"
	StopBits uint          // 1 or 2
	Timeout  time.Duration // e.g. 300 * time.Millisecond
}

// Client wraps the modbus client for one-shot register probes.
type Client struct {
	mbClient *modbus.ModbusClient
	Config   ClientConfig
}

// NewClient creates a probe client. The connection is opened separately
// via Open, so callers can retry on busy serial ports.
func NewClient(config ClientConfig) (*Client, error) {
	var parityValue uint
	switch config.Parity {
	case "N", "":
		parityValue = modbus.PARITY_NONE
	case "E":
		parityValue = modbus.PARITY_EVEN
	case "O":
		parityValue = modbus.PARITY_ODD
	default:
		return nil, fmt.Errorf("unknown parity %q, expected N, E or O", config.Parity)
	}

	mbClient, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      config.URL,
		Speed:    config.BaudRate,
		DataBits: config.DataBits,
		Parity:   parityValue,
		StopBits: config.StopBits,
		Timeout:  config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create modbus client: %w", err)
	}

	return &Client{mbClient: mbClient, Config: config}, nil
}

// Open opens the underlying serial connection.
func (c *Client) Open() error {
	if err := c.mbClient.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %w", c.Config.URL, err)
	}
	return nil
}

// ReadHoldingRegisters reads holding registers from the given slave.
func (c *Client) ReadHoldingRegisters(slaveID uint8, address uint16, quantity uint16) ([]uint16, error) {
	if err := c.mbClient.SetUnitId(slaveID); err != nil {
		return nil, fmt.Errorf("invalid slave ID %d: %w", slaveID, err)
	}

	registers, err := c.mbClient.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read %d register(s) at 0x%04X from slave %d: %w", quantity, address, slaveID, err)
	}
	return registers, nil
}

// ReadInputRegisters reads input registers from the given slave.
func (c *Client) ReadInputRegisters(slaveID uint8, address uint16, quantity uint16) ([]uint16, error) {
	if err := c.mbClient.SetUnitId(slaveID); err != nil {
		return nil, fmt.Errorf("invalid slave ID %d: %w", slaveID, err)
	}

	registers, err := c.mbClient.ReadRegisters(address, quantity, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read %d input register(s) at 0x%04X from slave %d: %w", quantity, address, slaveID, err)
	}
	return registers, nil
}

// Close closes the serial connection.
func (c *Client) Close() error {
	return c.mbClient.Close()
}
