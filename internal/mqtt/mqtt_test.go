package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/thermo-loop/internal/protocol"
)

func TestNodeTopic(t *testing.T) {
	got := NodeTopic(protocol.SinkAddr, protocol.Addr{Group: 2})
	if got != "thermo-loop/node/1.0/from/2.0" {
		t.Errorf("unexpected topic: %s", got)
	}
}

func TestInboxFilter(t *testing.T) {
	got := InboxFilter(protocol.Addr{Group: 2})
	if got != "thermo-loop/node/2.0/from/+" {
		t.Errorf("unexpected filter: %s", got)
	}
}

func TestSystemTopic(t *testing.T) {
	if got := SystemTopic(protocol.SinkAddr); got != "thermo-loop/system/1.0" {
		t.Errorf("unexpected topic: %s", got)
	}
}

func TestParseNodeTopic(t *testing.T) {
	dst, src, err := ParseNodeTopic(NodeTopic(protocol.Addr{Group: 1}, protocol.Addr{Group: 4, ID: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst != (protocol.Addr{Group: 1}) {
		t.Errorf("dst: got %s, want 1.0", dst)
	}
	if src != (protocol.Addr{Group: 4, ID: 2}) {
		t.Errorf("src: got %s, want 4.2", src)
	}
}

func TestParseNodeTopicRejects(t *testing.T) {
	bad := []string{
		"",
		"thermo-loop/system/1.0",
		"thermo-loop/node/1.0/from",
		"other/node/1.0/from/2.0",
		"thermo-loop/node/1.0/to/2.0",
		"thermo-loop/node/x/from/2.0",
		"thermo-loop/node/1.0/from/2.999",
	}
	for _, topic := range bad {
		if _, _, err := ParseNodeTopic(topic); err == nil {
			t.Errorf("%q: expected error", topic)
		}
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 7, 0, 0, 0, loc),
		Event:     "HEARTBEAT",
	}

	payload, _ := FormatSystemPayload(event)
	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Timestamp != "2026-02-03T10:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload to pass through, got %s", payload)
	}
}
