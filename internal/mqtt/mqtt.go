// Package mqtt carries negotiation frames between nodes over an MQTT broker,
// with an in-memory fake for tests.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/thermo-loop/internal/protocol"
)

// TopicPrefix is the root of every topic this system uses.
const TopicPrefix = "thermo-loop"

// Link is a node's best-effort connection to its peers.
type Link interface {
	// Send delivers payload to dst at most once. A nil error does not mean
	// the peer received it.
	Send(dst protocol.Addr, payload []byte) error

	// PublishSystem sends a lifecycle event for this node.
	PublishSystem(event SystemEvent) error

	// Ready is signalled whenever inbound packets are waiting in Drain.
	Ready() <-chan struct{}

	// Drain returns and clears all queued inbound packets, oldest first.
	Drain() []Packet

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// Packet is one inbound frame and the node that sent it.
type Packet struct {
	From    protocol.Addr
	Payload []byte
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// NodeTopic is where src publishes frames addressed to dst.
func NodeTopic(dst, src protocol.Addr) string {
	return fmt.Sprintf("%s/node/%s/from/%s", TopicPrefix, dst, src)
}

// InboxFilter is the subscription that receives every frame for self.
func InboxFilter(self protocol.Addr) string {
	return fmt.Sprintf("%s/node/%s/from/+", TopicPrefix, self)
}

// SystemTopic is where a node publishes its lifecycle events.
func SystemTopic(self protocol.Addr) string {
	return fmt.Sprintf("%s/system/%s", TopicPrefix, self)
}

// ParseNodeTopic recovers (dst, src) from a NodeTopic.
func ParseNodeTopic(topic string) (dst, src protocol.Addr, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[1] != "node" || parts[3] != "from" {
		return dst, src, fmt.Errorf("not a node topic: %q", topic)
	}
	if dst, err = protocol.ParseAddr(parts[2]); err != nil {
		return dst, src, err
	}
	src, err = protocol.ParseAddr(parts[4])
	return dst, src, err
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
