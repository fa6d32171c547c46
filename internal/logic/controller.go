package logic

// Controller decides when a battery-powered node may transmit.
// It is not safe for concurrent use; one goroutine owns it.
type Controller struct {
	cfg     Config
	sampler Sampler

	level     Level
	nextSend  uint32
	lastVolts float64
	cutoff    bool
	measured  bool // lastVolts came from a sample or an injection

	injected      bool
	injectedVolts float64

	counts Counts
}

// NewController creates a controller starting at LevelHigh with a deadline
// of now, so the first non-cutoff Tick transmits. sampler may be nil when
// every reading is injected.
func NewController(cfg Config, sampler Sampler, now uint32) *Controller {
	return &Controller{
		cfg:      cfg,
		sampler:  sampler,
		level:    LevelHigh,
		nextSend: now,
	}
}

// Tick runs one evaluation cycle and reports whether to transmit now.
func (c *Controller) Tick(now uint32) bool {
	var v float64
	if c.injected {
		v = c.injectedVolts
	} else {
		v = c.ReadBatteryVolts()
	}
	c.lastVolts = v

	// The deadline stays frozen while cut off.
	if v < c.cfg.Cutoff {
		c.cutoff = true
		c.counts.CutoffCycles++
		return false
	}
	c.cutoff = false

	next := NextLevel(c.level, v, c.thresholds())
	if next != c.level {
		c.level = next
		c.counts.LevelChanges++
	}

	if !Elapsed(now, c.nextSend) {
		return false
	}
	c.nextSend = now + c.CurrentPeriod()
	c.counts.Transmits++
	return true
}

// SetBatteryVolts injects an externally measured voltage. From the first
// call on, Tick uses the most recent injected value instead of sampling.
func (c *Controller) SetBatteryVolts(v float64) {
	c.injected = true
	c.injectedVolts = v
	c.measured = true
}

// ReadBatteryVolts averages cfg.Samples readings on the configured channel
// and converts them to the battery voltage. Without a channel or sampler,
// or when every reading fails, the cached voltage is returned.
func (c *Controller) ReadBatteryVolts() float64 {
	if c.cfg.ADCChannel < 0 || c.sampler == nil {
		return c.lastVolts
	}

	n := c.cfg.Samples
	if n < 1 {
		n = 1
	}

	var sum uint64
	var got int
	for i := 0; i < n; i++ {
		raw, err := c.sampler.ReadRaw(c.cfg.ADCChannel)
		if err != nil {
			continue
		}
		sum += uint64(raw)
		got++
	}
	if got == 0 {
		return c.lastVolts
	}
	c.measured = true

	avg := float64(sum) / float64(got)
	return CountsToVolts(avg, c.cfg)
}

// CountsToVolts converts an averaged raw count to the divider input voltage.
func CountsToVolts(avg float64, cfg Config) float64 {
	adc := avg / cfg.ADCMaxCount * cfg.ADCReference
	return adc * (cfg.DividerTop + cfg.DividerBottom) / cfg.DividerBottom
}

// Level returns the current energy level.
func (c *Controller) Level() Level {
	return c.level
}

// LastVolts returns the voltage observed by the last Tick.
func (c *Controller) LastVolts() float64 {
	return c.lastVolts
}

// IsCutoff reports whether the last Tick saw a voltage below the cutoff.
func (c *Controller) IsCutoff() bool {
	return c.cutoff
}

// Measured reports whether any voltage has been sampled or injected yet.
// Before that, LastVolts is the zero cache.
func (c *Controller) Measured() bool {
	return c.measured
}

// Injected reports whether injected readings replace sampling.
func (c *Controller) Injected() bool {
	return c.injected
}

// NextSend returns the deadline of the next transmission.
func (c *Controller) NextSend() uint32 {
	return c.nextSend
}

// CurrentPeriod returns the transmit period for the current level.
// Unrecognized levels get the longest period.
func (c *Controller) CurrentPeriod() uint32 {
	switch c.level {
	case LevelHigh:
		return c.cfg.HighPeriod
	case LevelMedium:
		return c.cfg.MediumPeriod
	default:
		return c.cfg.LowPeriod
	}
}

// Counts returns the decision counters.
func (c *Controller) Counts() Counts {
	return c.counts
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{
		Level:       c.level,
		Volts:       c.lastVolts,
		Cutoff:      c.cutoff,
		Injected:    c.injected,
		Measured:    c.measured,
		PeriodMs:    c.CurrentPeriod(),
		NextSend:    c.nextSend,
		Counts:      c.counts,
		Thresholds:  c.thresholds(),
		CutoffVolts: c.cfg.Cutoff,
	}
}

// SetPeriods replaces the per-level periods (ms).
func (c *Controller) SetPeriods(high, medium, low uint32) {
	c.cfg.HighPeriod = high
	c.cfg.MediumPeriod = medium
	c.cfg.LowPeriod = low
}

// SetThresholds replaces the high and medium thresholds (V).
func (c *Controller) SetThresholds(high, mid float64) {
	c.cfg.HighThreshold = high
	c.cfg.MidThreshold = mid
}

// SetHysteresis replaces the hysteresis fraction.
func (c *Controller) SetHysteresis(fraction float64) {
	c.cfg.Hysteresis = fraction
}

// Apply applies every non-nil field of s. A lone threshold keeps the
// other one at its current value.
func (c *Controller) Apply(s Settings) {
	if s.Periods != nil {
		c.SetPeriods(s.Periods.High, s.Periods.Medium, s.Periods.Low)
	}
	if s.HighThreshold != nil || s.MidThreshold != nil {
		high, mid := c.cfg.HighThreshold, c.cfg.MidThreshold
		if s.HighThreshold != nil {
			high = *s.HighThreshold
		}
		if s.MidThreshold != nil {
			mid = *s.MidThreshold
		}
		c.SetThresholds(high, mid)
	}
	if s.Hysteresis != nil {
		c.SetHysteresis(*s.Hysteresis)
	}
}

func (c *Controller) thresholds() Thresholds {
	return Thresholds{
		High:       c.cfg.HighThreshold,
		Mid:        c.cfg.MidThreshold,
		Hysteresis: c.cfg.Hysteresis,
	}
}
