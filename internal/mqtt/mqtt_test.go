package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/adaptive-tx/internal/logic"
)

func testReport() Report {
	return Report{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		NodeID:    "node-7",
		State: logic.State{
			Level:    logic.LevelMedium,
			Volts:    3.71,
			PeriodMs: 15000,
			Injected: true,
			Counts:   logic.Counts{Transmits: 12},
		},
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(testReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Battery.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Battery.Timestamp)
	}
	if parsed.Battery.Node != "node-7" {
		t.Errorf("unexpected node: %s", parsed.Battery.Node)
	}
	if parsed.Battery.Volts != 3.71 {
		t.Errorf("unexpected volts: %v", parsed.Battery.Volts)
	}
	if parsed.Battery.Level != "MEDIUM" {
		t.Errorf("unexpected level: %s", parsed.Battery.Level)
	}
	if parsed.Battery.PeriodMs != 15000 {
		t.Errorf("unexpected period: %d", parsed.Battery.PeriodMs)
	}
	if !parsed.Battery.Injected {
		t.Error("expected injected=true")
	}
	if parsed.Battery.Transmits != 12 {
		t.Errorf("unexpected transmits: %d", parsed.Battery.Transmits)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(testReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"battery":{"timestamp":"2026-02-02T22:18:12Z","node":"node-7","volts":3.71,"level":"MEDIUM","period_ms":15000,"injected":true,"transmits":12}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadAllLevels(t *testing.T) {
	tests := []struct {
		level logic.Level
		want  string
	}{
		{logic.LevelHigh, "HIGH"},
		{logic.LevelMedium, "MEDIUM"},
		{logic.LevelLow, "LOW"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := testReport()
			r.State.Level = tt.level

			payload, err := FormatPayload(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Battery.Level != tt.want {
				t.Errorf("level: got %s, want %s", parsed.Battery.Level, tt.want)
			}
		})
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(f.Reports))
	}
	if f.Reports[0].NodeID != "node-7" {
		t.Errorf("unexpected node: %s", f.Reports[0].NodeID)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(testReport()); err == nil {
		t.Error("expected error")
	}
	if len(f.Reports) != 0 {
		t.Errorf("expected no reports recorded on error, got %d", len(f.Reports))
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Event: EventStartup})
	f.PublishSystem(SystemEvent{Event: EventCutoff})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != EventStartup || names[1] != EventCutoff {
		t.Errorf("unexpected system events: %v", names)
	}
	if len(f.SystemPayloads) != 2 {
		t.Errorf("expected 2 system payloads, got %d", len(f.SystemPayloads))
	}

	f.PublishSystemError = errors.New("down")
	if err := f.PublishSystem(SystemEvent{Event: EventShutdown}); err == nil {
		t.Error("expected error")
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(testReport())
	f.PublishSystem(SystemEvent{Event: EventStartup})
	f.Close()
	f.PublishError = errors.New("error")
	f.Connected = true

	f.Reset()

	if len(f.Reports) != 0 {
		t.Error("reports should be cleared")
	}
	if len(f.Payloads) != 0 {
		t.Error("payloads should be cleared")
	}
	if len(f.SystemEvents) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed {
		t.Error("closed should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
	if f.Connected {
		t.Error("connected should be reset")
	}
}

func TestTopic(t *testing.T) {
	expected := "sensors/adaptive-tx/telemetry"
	if Topic != expected {
		t.Errorf("unexpected topic: got %s, want %s", Topic, expected)
	}
}

func TestTopicSystem(t *testing.T) {
	expected := "sensors/adaptive-tx/system"
	if TopicSystem != expected {
		t.Errorf("unexpected system topic: got %s, want %s", TopicSystem, expected)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     EventLevelChange,
		Reason:    "HIGH->MEDIUM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"LEVEL_CHANGE","reason":"HIGH->MEDIUM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Reason != "HIGH->MEDIUM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC),
		Event:     EventCutoff,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason field should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventStartup, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}
