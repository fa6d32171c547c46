package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/adaptive-tx/internal/logic"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, 5.0, p.ADC.Reference)
	assert.Equal(t, float64(1023), p.ADC.MaxCount)
	assert.Equal(t, 100.0, p.ADC.DividerTop)
	assert.Equal(t, 33.0, p.ADC.DividerBottom)
	assert.Equal(t, 8, p.ADC.Samples)
	assert.Equal(t, 250*time.Microsecond, p.ADC.SampleDelay)
	assert.Equal(t, 3.90, p.Thresholds.High)
	assert.Equal(t, 3.60, p.Thresholds.Mid)
	assert.Equal(t, 0.03, p.Thresholds.Hysteresis)
	assert.Equal(t, 3.40, p.Thresholds.Cutoff)
	assert.Equal(t, 5*time.Second, p.Periods.High)
	assert.Equal(t, 15*time.Second, p.Periods.Medium)
	assert.Equal(t, 2*time.Minute, p.Periods.Low)
	assert.Equal(t, logic.NoChannel, p.Channel())
	assert.NoError(t, p.Validate())
}

func TestDefaultMatchesController(t *testing.T) {
	assert.Equal(t, logic.DefaultConfig(), Default().Controller())
}

func TestLoad_FileNotExists(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
adc:
  channel: 2
  reference: 3.3
  max_count: 4095
  divider_top: 0
  divider_bottom: 1
  samples: 16
  sample_delay: 1ms

thresholds:
  high: 4.0
  mid: 3.7
  hysteresis: 0.02
  cutoff: 3.3

periods:
  high: 10s
  medium: 1m
  low: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Channel())
	assert.Equal(t, 3.3, p.ADC.Reference)
	assert.Equal(t, float64(4095), p.ADC.MaxCount)
	assert.Equal(t, 0.0, p.ADC.DividerTop)
	assert.Equal(t, 1.0, p.ADC.DividerBottom)
	assert.Equal(t, 16, p.ADC.Samples)
	assert.Equal(t, time.Millisecond, p.ADC.SampleDelay)
	assert.Equal(t, 4.0, p.Thresholds.High)
	assert.Equal(t, 3.7, p.Thresholds.Mid)
	assert.Equal(t, 0.02, p.Thresholds.Hysteresis)
	assert.Equal(t, 3.3, p.Thresholds.Cutoff)
	assert.Equal(t, 10*time.Second, p.Periods.High)
	assert.Equal(t, time.Minute, p.Periods.Medium)
	assert.Equal(t, 10*time.Minute, p.Periods.Low)

	cfg := p.Controller()
	assert.Equal(t, 2, cfg.ADCChannel)
	assert.Equal(t, uint32(10000), cfg.HighPeriod)
	assert.Equal(t, uint32(60000), cfg.MediumPeriod)
	assert.Equal(t, uint32(600000), cfg.LowPeriod)
}

func TestLoad_PartialYAMLFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  cutoff: 3.2\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3.2, p.Thresholds.Cutoff)
	assert.Equal(t, 3.90, p.Thresholds.High)
	assert.Equal(t, 5*time.Second, p.Periods.High)
	assert.Equal(t, 33.0, p.ADC.DividerBottom)
}

func TestLoad_ZeroDividerBottomGetsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adc:\n  divider_bottom: 0\n  divider_top: 0\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 33.0, p.ADC.DividerBottom)
	assert.Equal(t, 0.0, p.ADC.DividerTop)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds: [not, a, map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	ch := 1
	p := Default()
	p.ADC.Channel = &ch
	p.Thresholds.Cutoff = 3.25
	p.Periods.Low = 5 * time.Minute

	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr bool
	}{
		{"default", func(p *Profile) {}, false},
		{"mid above high", func(p *Profile) { p.Thresholds.Mid = 4.0 }, true},
		{"cutoff above mid", func(p *Profile) { p.Thresholds.Cutoff = 3.7 }, true},
		{"equal thresholds", func(p *Profile) { p.Thresholds.Mid = p.Thresholds.High }, true},
		{"negative hysteresis", func(p *Profile) { p.Thresholds.Hysteresis = -0.1 }, true},
		{"zero hysteresis", func(p *Profile) { p.Thresholds.Hysteresis = 0 }, false},
		{"max samples", func(p *Profile) { p.ADC.Samples = MaxSamples }, false},
		{"too many samples", func(p *Profile) { p.ADC.Samples = 70000 }, true},
		{"negative samples", func(p *Profile) { p.ADC.Samples = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			if tt.wantErr {
				assert.Error(t, p.Validate())
			} else {
				assert.NoError(t, p.Validate())
			}
		})
	}
}

func TestChannelNegativeMeansNone(t *testing.T) {
	ch := -1
	p := Default()
	p.ADC.Channel = &ch
	assert.Equal(t, logic.NoChannel, p.Channel())
}

func TestCLIValidate(t *testing.T) {
	valid := func() *CLI {
		return &CLI{Source: SourceSerial, Poll: time.Second, ModbusSlave: 1}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Source = "bluetooth"
	assert.Error(t, c.Validate())

	c = valid()
	c.Poll = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.ModbusSlave = 300
	assert.Error(t, c.Validate())

	c = valid()
	c.ModbusRegister = 70000
	assert.Error(t, c.Validate())

	for _, s := range []string{SourceSerial, SourceModbus, SourceModbusVolts, SourceFake} {
		c = valid()
		c.Source = s
		assert.NoError(t, c.Validate(), s)
	}
}
