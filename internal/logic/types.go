// Package logic contains the pure battery-driven transmission controller.
// This package has NO external dependencies (no ADC transport, MQTT, OS, or time.Sleep).
// Time is always injectable: callers pass the wrapping millisecond clock to Tick.
package logic

// Level is the discretized battery-energy classification.
type Level uint8

const (
	LevelLow    Level = 0
	LevelMedium Level = 1
	LevelHigh   Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// NoChannel disables internal ADC sampling.
const NoChannel = -1

// DefaultADCMaxCount is the full-scale count of a 10-bit ADC.
const DefaultADCMaxCount = 1023

// Config holds the controller configuration.
// Ordering high > mid > cutoff is assumed but not enforced.
type Config struct {
	// ADC sampling
	ADCChannel    int     // NoChannel when the voltage is injected
	ADCReference  float64 // ADC reference voltage (V)
	ADCMaxCount   float64 // full-scale raw count
	DividerTop    float64 // Vin -> DividerTop -> ADC (kOhm)
	DividerBottom float64 // ADC -> DividerBottom -> GND (kOhm); 0/1 for passthrough
	Samples       int     // readings averaged per cycle

	// Thresholds (V)
	HighThreshold float64
	MidThreshold  float64
	Hysteresis    float64 // fraction, e.g. 0.03
	Cutoff        float64

	// Periods (ms)
	HighPeriod   uint32
	MediumPeriod uint32
	LowPeriod    uint32
}

// DefaultConfig returns the stock configuration for a single Li-ion cell
// behind a 100k/33k divider on a 5V 10-bit ADC.
func DefaultConfig() Config {
	return Config{
		ADCChannel:    NoChannel,
		ADCReference:  5.0,
		ADCMaxCount:   DefaultADCMaxCount,
		DividerTop:    100,
		DividerBottom: 33,
		Samples:       8,
		HighThreshold: 3.90,
		MidThreshold:  3.60,
		Hysteresis:    0.03,
		Cutoff:        3.40,
		HighPeriod:    5000,
		MediumPeriod:  15000,
		LowPeriod:     120000,
	}
}

// Sampler returns raw ADC counts for a channel.
type Sampler interface {
	ReadRaw(channel int) (uint16, error)
}

// Counts tracks decisions since startup.
type Counts struct {
	Transmits    int // Tick returned true
	CutoffCycles int // Tick suppressed by the cutoff gate
	LevelChanges int
}

// Periods are the per-level transmit periods in milliseconds.
type Periods struct {
	High   uint32
	Medium uint32
	Low    uint32
}

// Settings is a batch of runtime reconfiguration values.
// Nil fields are left unchanged.
type Settings struct {
	Periods       *Periods
	HighThreshold *float64
	MidThreshold  *float64
	Hysteresis    *float64
}

// Empty reports whether the settings change nothing.
func (s Settings) Empty() bool {
	return s.Periods == nil && s.HighThreshold == nil && s.MidThreshold == nil && s.Hysteresis == nil
}

// State is a point-in-time view of the controller.
type State struct {
	Level       Level
	Volts       float64
	Cutoff      bool
	Injected    bool
	Measured    bool
	PeriodMs    uint32
	NextSend    uint32
	Counts      Counts
	Thresholds  Thresholds
	CutoffVolts float64
}
