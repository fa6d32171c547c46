// Package status provides a thread-safe status tracker for the adaptive-tx daemon.
// It is designed to be read by HTTP handlers while the run loop owns the controller.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/adaptive-tx/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	NodeID   string
	Source   string
	PollMs   int64
	Broker   string
	HTTPAddr string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value copy and may be used after the lock is released.
type Snapshot struct {
	Controller    logic.State
	Ready         bool // at least one cycle evaluated
	LastTransmit  time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the controller state after a cycle.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.State) {
	t.mu.Lock()
	t.snap.Controller = state
	t.snap.Ready = true
	t.mu.Unlock()
}

// UpdateSettings copies the tunable fields of state without marking the
// tracker ready.
func (t *Tracker) UpdateSettings(state logic.State) {
	t.mu.Lock()
	t.snap.Controller.Thresholds = state.Thresholds
	t.snap.Controller.PeriodMs = state.PeriodMs
	t.snap.Controller.CutoffVolts = state.CutoffVolts
	t.mu.Unlock()
}

// MarkTransmit records the time of the latest transmit decision.
func (t *Tracker) MarkTransmit(at time.Time) {
	t.mu.Lock()
	t.snap.LastTransmit = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
