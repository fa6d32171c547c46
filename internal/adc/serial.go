package adc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudRate is the rate of the sampling MCU's USB serial port.
const DefaultBaudRate = 115200

// SerialSampler asks a serial-attached MCU for raw ADC counts.
//
// Request:  "R<channel>\n"
// Response: "<channel>:<count>\n"
type SerialSampler struct {
	rw io.ReadWriteCloser
	r  *bufio.Reader
}

// OpenSerial opens port at baud and returns a sampler reading from it.
func OpenSerial(port string, baud int, timeout time.Duration) (*SerialSampler, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", port)
	}
	if timeout > 0 {
		if err := p.SetReadTimeout(timeout); err != nil {
			p.Close()
			return nil, errors.Wrap(err, "set read timeout")
		}
	}
	return NewSerialSampler(p), nil
}

// NewSerialSampler wraps an already open stream.
func NewSerialSampler(rw io.ReadWriteCloser) *SerialSampler {
	return &SerialSampler{rw: rw, r: bufio.NewReader(rw)}
}

// ReadRaw requests one conversion on channel.
func (s *SerialSampler) ReadRaw(channel int) (uint16, error) {
	if _, err := fmt.Fprintf(s.rw, "R%d\n", channel); err != nil {
		return 0, errors.Wrap(err, "write request")
	}

	line, err := s.r.ReadString('\n')
	if err != nil {
		return 0, errors.Wrap(err, "read response")
	}
	line = strings.TrimSpace(line)
	logrus.WithField("channel", channel).Tracef("adc response %q", line)

	return parseResponse(line, channel)
}

// Close closes the underlying port.
func (s *SerialSampler) Close() error {
	return s.rw.Close()
}

func parseResponse(line string, channel int) (uint16, error) {
	ch, count, ok := strings.Cut(line, ":")
	if !ok {
		return 0, errors.Errorf("malformed response %q", line)
	}
	got, err := strconv.Atoi(ch)
	if err != nil {
		return 0, errors.Wrapf(err, "parse channel in %q", line)
	}
	if got != channel {
		return 0, errors.Errorf("response for channel %d, want %d", got, channel)
	}
	v, err := strconv.ParseUint(count, 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "parse count in %q", line)
	}
	return uint16(v), nil
}
