package adc

import "errors"

// FakeSampler is a test double that returns scripted counts.
type FakeSampler struct {
	// Counts contains scripted raw counts. Each ReadRaw consumes the next
	// one; when exhausted the last count repeats.
	Counts []uint16

	// ReadError, if set, is returned by ReadRaw.
	ReadError error

	// Channels records the channel of every ReadRaw call.
	Channels []int

	index int
}

// NewFakeSampler creates a FakeSampler with the given counts.
func NewFakeSampler(counts ...uint16) *FakeSampler {
	return &FakeSampler{Counts: counts}
}

// ReadRaw returns the next scripted count.
func (f *FakeSampler) ReadRaw(channel int) (uint16, error) {
	f.Channels = append(f.Channels, channel)
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Counts) == 0 {
		return 0, errors.New("no counts configured")
	}
	c := f.Counts[f.index]
	if f.index < len(f.Counts)-1 {
		f.index++
	}
	return c, nil
}

// FakeVoltMeter is a test double that returns scripted voltages.
type FakeVoltMeter struct {
	Volts     []float64
	ReadError error

	index int
}

// NewFakeVoltMeter creates a FakeVoltMeter with the given voltages.
func NewFakeVoltMeter(volts ...float64) *FakeVoltMeter {
	return &FakeVoltMeter{Volts: volts}
}

// ReadVolts returns the next scripted voltage, repeating the last one.
func (f *FakeVoltMeter) ReadVolts() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Volts) == 0 {
		return 0, errors.New("no voltages configured")
	}
	v := f.Volts[f.index]
	if f.index < len(f.Volts)-1 {
		f.index++
	}
	return v, nil
}
