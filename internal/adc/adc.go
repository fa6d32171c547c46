// Package adc provides battery voltage sources for the transmission controller.
// Samplers return raw ADC counts (averaged and converted by the controller);
// volt meters return an already-converted voltage that is injected.
package adc

import "time"

// Sampler returns a raw ADC count for a channel.
type Sampler interface {
	ReadRaw(channel int) (uint16, error)
}

// VoltMeter returns a battery voltage measured by an external device.
type VoltMeter interface {
	ReadVolts() (float64, error)
}

// DefaultSampleDelay is the settle time between consecutive readings.
const DefaultSampleDelay = 250 * time.Microsecond

// Paced waits a fixed delay after every reading of the wrapped sampler.
type Paced struct {
	sampler Sampler
	delay   time.Duration
	sleep   func(time.Duration)
}

// NewPaced wraps s so consecutive readings are at least delay apart.
func NewPaced(s Sampler, delay time.Duration) *Paced {
	return &Paced{sampler: s, delay: delay, sleep: time.Sleep}
}

// ReadRaw reads one sample and then waits.
func (p *Paced) ReadRaw(channel int) (uint16, error) {
	raw, err := p.sampler.ReadRaw(channel)
	if p.delay > 0 {
		p.sleep(p.delay)
	}
	return raw, err
}
