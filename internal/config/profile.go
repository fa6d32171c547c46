// Package config loads daemon settings (flags/env via multiconfig) and the
// controller profile (YAML).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sweeney/adaptive-tx/internal/adc"
	"github.com/sweeney/adaptive-tx/internal/logic"
	"gopkg.in/yaml.v3"
)

// Profile is the controller configuration file.
type Profile struct {
	ADC        ADCConfig       `yaml:"adc"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Periods    PeriodConfig    `yaml:"periods"`
}

// ADCConfig describes how raw counts become a battery voltage.
type ADCConfig struct {
	Channel       *int          `yaml:"channel"` // nil or -1: no internal sampling
	Reference     float64       `yaml:"reference"`
	MaxCount      float64       `yaml:"max_count"`
	DividerTop    float64       `yaml:"divider_top"`
	DividerBottom float64       `yaml:"divider_bottom"`
	Samples       int           `yaml:"samples"`
	SampleDelay   time.Duration `yaml:"sample_delay"`
}

// ThresholdConfig holds level thresholds in volts.
type ThresholdConfig struct {
	High       float64 `yaml:"high"`
	Mid        float64 `yaml:"mid"`
	Hysteresis float64 `yaml:"hysteresis"`
	Cutoff     float64 `yaml:"cutoff"`
}

// PeriodConfig holds per-level transmit periods.
type PeriodConfig struct {
	High   time.Duration `yaml:"high"`
	Medium time.Duration `yaml:"medium"`
	Low    time.Duration `yaml:"low"`
}

// MaxSamples bounds the readings averaged per cycle.
const MaxSamples = 255

// Default returns the stock profile.
func Default() *Profile {
	d := logic.DefaultConfig()
	return &Profile{
		ADC: ADCConfig{
			Reference:     d.ADCReference,
			MaxCount:      d.ADCMaxCount,
			DividerTop:    d.DividerTop,
			DividerBottom: d.DividerBottom,
			Samples:       d.Samples,
			SampleDelay:   adc.DefaultSampleDelay,
		},
		Thresholds: ThresholdConfig{
			High:       d.HighThreshold,
			Mid:        d.MidThreshold,
			Hysteresis: d.Hysteresis,
			Cutoff:     d.Cutoff,
		},
		Periods: PeriodConfig{
			High:   time.Duration(d.HighPeriod) * time.Millisecond,
			Medium: time.Duration(d.MediumPeriod) * time.Millisecond,
			Low:    time.Duration(d.LowPeriod) * time.Millisecond,
		},
	}
}

// Load reads a profile from a YAML file. A missing file yields the
// defaults; missing fields are filled from the defaults.
func Load(filename string) (*Profile, error) {
	p := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	p.ensureDefaults()
	return p, nil
}

// Save writes the profile as YAML.
func (p *Profile) Save(filename string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// ensureDefaults fills zero values that would make the controller
// divide by zero or never transmit. DividerTop may legitimately be 0.
func (p *Profile) ensureDefaults() {
	def := Default()

	if p.ADC.Reference == 0 {
		p.ADC.Reference = def.ADC.Reference
	}
	if p.ADC.MaxCount == 0 {
		p.ADC.MaxCount = def.ADC.MaxCount
	}
	if p.ADC.DividerBottom == 0 {
		p.ADC.DividerBottom = def.ADC.DividerBottom
	}
	if p.ADC.Samples == 0 {
		p.ADC.Samples = def.ADC.Samples
	}

	if p.Periods.High == 0 {
		p.Periods.High = def.Periods.High
	}
	if p.Periods.Medium == 0 {
		p.Periods.Medium = def.Periods.Medium
	}
	if p.Periods.Low == 0 {
		p.Periods.Low = def.Periods.Low
	}
}

// Validate reports an incoherent threshold ordering or sample count. The
// controller runs regardless; callers decide whether to warn or abort.
func (p *Profile) Validate() error {
	th := p.Thresholds
	if !(th.High > th.Mid && th.Mid > th.Cutoff) {
		return fmt.Errorf("thresholds out of order: want high (%.3f) > mid (%.3f) > cutoff (%.3f)", th.High, th.Mid, th.Cutoff)
	}
	if th.Hysteresis < 0 || th.Hysteresis >= 1 {
		return fmt.Errorf("hysteresis fraction %.3f outside [0, 1)", th.Hysteresis)
	}
	if p.ADC.Samples < 1 || p.ADC.Samples > MaxSamples {
		return fmt.Errorf("adc samples %d outside 1..%d", p.ADC.Samples, MaxSamples)
	}
	return nil
}

// Channel returns the configured ADC channel or logic.NoChannel.
func (p *Profile) Channel() int {
	if p.ADC.Channel == nil || *p.ADC.Channel < 0 {
		return logic.NoChannel
	}
	return *p.ADC.Channel
}

// Controller converts the profile to a controller configuration.
func (p *Profile) Controller() logic.Config {
	return logic.Config{
		ADCChannel:    p.Channel(),
		ADCReference:  p.ADC.Reference,
		ADCMaxCount:   p.ADC.MaxCount,
		DividerTop:    p.ADC.DividerTop,
		DividerBottom: p.ADC.DividerBottom,
		Samples:       p.ADC.Samples,
		HighThreshold: p.Thresholds.High,
		MidThreshold:  p.Thresholds.Mid,
		Hysteresis:    p.Thresholds.Hysteresis,
		Cutoff:        p.Thresholds.Cutoff,
		HighPeriod:    uint32(p.Periods.High.Milliseconds()),
		MediumPeriod:  uint32(p.Periods.Medium.Milliseconds()),
		LowPeriod:     uint32(p.Periods.Low.Milliseconds()),
	}
}
