// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/adaptive-tx/internal/logic"
)

// Topic is the MQTT topic for telemetry reports.
const Topic = "sensors/adaptive-tx/telemetry"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/adaptive-tx/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a telemetry report to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(report Report) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Report is the telemetry sent whenever the controller allows a transmission.
type Report struct {
	Timestamp time.Time
	NodeID    string
	State     logic.State
}

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventLevelChange = "LEVEL_CHANGE"
	EventCutoff      = "CUTOFF"
	EventRecovered   = "RECOVERED"
)

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, cutoff).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "LEVEL_CHANGE"
	Reason     string // e.g., "SIGTERM", "HIGH->MEDIUM"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT telemetry payload structure.
type Payload struct {
	Battery BatteryPayload `json:"battery"`
}

// BatteryPayload contains the telemetry details.
type BatteryPayload struct {
	Timestamp string  `json:"timestamp"`
	Node      string  `json:"node"`
	Volts     float64 `json:"volts"`
	Level     string  `json:"level"`
	PeriodMs  uint32  `json:"period_ms"`
	Injected  bool    `json:"injected"`
	Transmits int     `json:"transmits"`
}

// FormatPayload creates the JSON payload for a telemetry report.
func FormatPayload(report Report) ([]byte, error) {
	payload := Payload{
		Battery: BatteryPayload{
			Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
			Node:      report.NodeID,
			Volts:     report.State.Volts,
			Level:     report.State.Level.String(),
			PeriodMs:  report.State.PeriodMs,
			Injected:  report.State.Injected,
			Transmits: report.State.Counts.Transmits,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
