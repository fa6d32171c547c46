package config

import (
	"fmt"
	"time"

	"github.com/koding/multiconfig"
)

// Voltage sources selectable with -source.
const (
	SourceSerial      = "serial"       // raw counts from a serial MCU
	SourceModbus      = "modbus"       // raw counts from Modbus input registers
	SourceModbusVolts = "modbus-volts" // volts from a Modbus holding register, injected
	SourceFake        = "fake"         // fixed raw count, for bench testing
)

// CLI holds daemon settings. Values come from struct defaults, then
// CLI_* environment variables, then flags.
type CLI struct {
	Profile string        `default:"/etc/adaptive-tx.yaml"`
	Poll    time.Duration `default:"1s"`

	Source     string `default:"serial"`
	SerialPort string `default:"/dev/ttyACM0"`
	SerialBaud int    `default:"115200"`

	ModbusAddr     string        `default:"127.0.0.1:502"`
	ModbusSlave    int           `default:"1"`
	ModbusRegister int           `default:"0"` // base input register, or the voltage holding register
	ModbusScale    float64       `default:"0.001"`
	ModbusTimeout  time.Duration `default:"2s"`

	FakeCount int `default:"800"`

	Broker         string `default:"tcp://127.0.0.1:1883"`
	ClientID       string `default:"adaptive-tx"`
	EmbeddedBroker string // listen address; empty disables

	HTTP     string `default:":8080"`
	TXPin    int    `default:"-1"` // BCM pin for the transmit-request line; -1 disables
	NodeID   string `default:"node-1"`
	LogLevel string `default:"info"`

	Once bool // take one reading, print it and exit
}

// LoadCLI reads defaults, environment and command-line flags.
func LoadCLI() (*CLI, error) {
	c := &CLI{}
	if err := multiconfig.New().Load(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values multiconfig cannot.
func (c *CLI) Validate() error {
	switch c.Source {
	case SourceSerial, SourceModbus, SourceModbusVolts, SourceFake:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Poll)
	}
	if c.ModbusSlave < 0 || c.ModbusSlave > 247 {
		return fmt.Errorf("modbus slave id %d out of range", c.ModbusSlave)
	}
	if c.ModbusRegister < 0 || c.ModbusRegister > 0xffff {
		return fmt.Errorf("modbus register %d out of range", c.ModbusRegister)
	}
	return nil
}
