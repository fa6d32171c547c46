package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Node          string         `json:"node"`
	Level         string         `json:"level"`
	Volts         float64        `json:"volts"`
	Cutoff        bool           `json:"cutoff"`
	Injected      bool           `json:"injected"`
	PeriodMs      uint32         `json:"period_ms"`
	NextSendMs    uint32         `json:"next_send_ms"`
	LastTransmit  string         `json:"last_transmit,omitempty"`
	Ready         bool           `json:"ready"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"counts"`
	Thresholds    ThresholdsJSON `json:"thresholds"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of controller counters.
type CountsJSON struct {
	Transmits    int `json:"transmits"`
	CutoffCycles int `json:"cutoff_cycles"`
	LevelChanges int `json:"level_changes"`
}

// ThresholdsJSON is the JSON representation of the active thresholds.
type ThresholdsJSON struct {
	High       float64 `json:"high"`
	Mid        float64 `json:"mid"`
	Hysteresis float64 `json:"hysteresis"`
	Cutoff     float64 `json:"cutoff"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source   string `json:"source"`
	PollMs   int64  `json:"poll_ms"`
	Broker   string `json:"broker"`
	HTTPAddr string `json:"http_addr"`
}

// LevelName returns the level for display; UNKNOWN until the first cycle.
func (s Snapshot) LevelName() string {
	if !s.Ready {
		return "UNKNOWN"
	}
	return s.Controller.Level.String()
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Controller
	inner := StatusInner{
		Node:          snap.Config.NodeID,
		Level:         snap.LevelName(),
		Volts:         c.Volts,
		Cutoff:        c.Cutoff,
		Injected:      c.Injected,
		PeriodMs:      c.PeriodMs,
		NextSendMs:    c.NextSend,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Transmits:    c.Counts.Transmits,
			CutoffCycles: c.Counts.CutoffCycles,
			LevelChanges: c.Counts.LevelChanges,
		},
		Thresholds: ThresholdsJSON{
			High:       c.Thresholds.High,
			Mid:        c.Thresholds.Mid,
			Hysteresis: c.Thresholds.Hysteresis,
			Cutoff:     c.CutoffVolts,
		},
		Config: ConfigJSON{
			Source:   snap.Config.Source,
			PollMs:   snap.Config.PollMs,
			Broker:   snap.Config.Broker,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}
	if !snap.LastTransmit.IsZero() {
		inner.LastTransmit = snap.LastTransmit.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
