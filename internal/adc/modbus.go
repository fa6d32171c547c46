package adc

import (
	"encoding/binary"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// registerReader is the subset of modbus.Client used here.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// DialModbus connects to a Modbus device. Addresses starting with /dev/ use
// RTU at 9600 8N1; everything else is treated as host:port for Modbus TCP.
// The returned closer drops the connection; the handler reconnects on the
// next request.
func DialModbus(addr string, slaveID byte, timeout time.Duration) (modbus.Client, io.Closer, error) {
	if strings.HasPrefix(addr, "/dev/") {
		h := modbus.NewRTUClientHandler(addr)
		h.BaudRate = 9600
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.SlaveId = slaveID
		h.Timeout = timeout
		if err := h.Connect(); err != nil {
			return nil, nil, errors.Wrapf(err, "connect modbus rtu %s", addr)
		}
		return modbus.NewClient(h), h, nil
	}

	h := modbus.NewTCPClientHandler(addr)
	h.SlaveId = slaveID
	h.Timeout = timeout
	if err := h.Connect(); err != nil {
		return nil, nil, errors.Wrapf(err, "connect modbus tcp %s", addr)
	}
	return modbus.NewClient(h), h, nil
}

// ModbusSampler reads raw counts from input registers base+channel.
type ModbusSampler struct {
	client registerReader
	closer io.Closer
	base   uint16
}

// NewModbusSampler creates a sampler. closer may be nil.
func NewModbusSampler(client registerReader, closer io.Closer, base uint16) *ModbusSampler {
	return &ModbusSampler{client: client, closer: closer, base: base}
}

// ReadRaw reads one input register.
func (m *ModbusSampler) ReadRaw(channel int) (uint16, error) {
	addr := m.base + uint16(channel)
	b, err := m.client.ReadInputRegisters(addr, 1)
	if err != nil {
		closeIfNeeded(m.closer, err)
		return 0, errors.Wrapf(err, "read input register %d", addr)
	}
	return decode(b, addr)
}

// ModbusVoltMeter reads a battery voltage from a holding register, e.g. a
// charger or PMIC reporting millivolts.
type ModbusVoltMeter struct {
	client  registerReader
	closer  io.Closer
	address uint16
	scale   float64 // volts per count
}

// NewModbusVoltMeter creates a volt meter. A zero scale means millivolts.
func NewModbusVoltMeter(client registerReader, closer io.Closer, address uint16, scale float64) *ModbusVoltMeter {
	if scale == 0 {
		scale = 0.001
	}
	return &ModbusVoltMeter{client: client, closer: closer, address: address, scale: scale}
}

// ReadVolts reads and scales the register.
func (m *ModbusVoltMeter) ReadVolts() (float64, error) {
	b, err := m.client.ReadHoldingRegisters(m.address, 1)
	if err != nil {
		closeIfNeeded(m.closer, err)
		return 0, errors.Wrapf(err, "read holding register %d", m.address)
	}
	raw, err := decode(b, m.address)
	if err != nil {
		return 0, err
	}
	return float64(raw) * m.scale, nil
}

func decode(b []byte, addr uint16) (uint16, error) {
	if len(b) < 2 {
		return 0, errors.Errorf("short response from register %d: %d bytes", addr, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// closeIfNeeded drops a broken connection so the next request redials.
func closeIfNeeded(closer io.Closer, err error) {
	if closer == nil {
		return
	}
	var reason string
	switch {
	case errors.Is(err, syscall.EPIPE):
		reason = "broken pipe"
	case errors.Is(err, os.ErrDeadlineExceeded):
		reason = "i/o timeout"
	default:
		return
	}
	logrus.Warnf("modbus: reconnect due to %s", reason)
	if cerr := closer.Close(); cerr != nil {
		logrus.Errorf("modbus: close: %v", cerr)
	}
}
