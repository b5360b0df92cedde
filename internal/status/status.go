// Package status provides a thread-safe status tracker for a thermo-loop node.
// It is read by HTTP handlers, the websocket feed and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/thermo-loop/internal/logic"
)

// Config contains node configuration for display.
type Config struct {
	Role        string
	Addr        string
	Sink        string
	Setpoint    int
	Tolerance   int
	Actuation   string
	Wire        string
	Env         string
	PeriodMs    int64
	SettleMs    int64
	PacingMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// CommandCounts tallies commands by type.
type CommandCounts struct {
	Heat     int
	Cool     int
	Stable   int
	Finished int
	Restart  int
}

// Add counts one command.
func (c *CommandCounts) Add(cmd logic.Command) {
	switch cmd {
	case logic.CommandHeat:
		c.Heat++
	case logic.CommandCool:
		c.Cool++
	case logic.CommandStable:
		c.Stable++
	case logic.CommandFinished:
		c.Finished++
	case logic.CommandRestart:
		c.Restart++
	}
}

// Traffic counts one direction of protocol messages.
type Traffic struct {
	Readings int
	Commands CommandCounts
}

func (t *Traffic) add(msg logic.Message) {
	if msg.Kind == logic.KindReading {
		t.Readings++
		return
	}
	t.Commands.Add(msg.Command)
}

// Snapshot is a point-in-time view of node state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	HasReading   bool
	LastReading  int
	LastCommand  logic.Command
	LastPeer     string
	LastActivity time.Time

	SessionTemp  int
	SessionState logic.FieldState
	Cycles       int

	Sent        Traffic
	Received    Traffic
	ParseErrors int
	Unexpected  int
	SendErrors  int

	Halted       bool
	HaltedReason string

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the node started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable node state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// RecordReceived notes an inbound message from peer.
func (t *Tracker) RecordReceived(peer string, msg logic.Message) {
	t.mu.Lock()
	t.snap.Received.add(msg)
	t.noteLocked(peer, msg)
	t.mu.Unlock()
}

// RecordSent notes an outbound message to peer.
func (t *Tracker) RecordSent(peer string, msg logic.Message) {
	t.mu.Lock()
	t.snap.Sent.add(msg)
	t.noteLocked(peer, msg)
	t.mu.Unlock()
}

func (t *Tracker) noteLocked(peer string, msg logic.Message) {
	t.snap.LastPeer = peer
	t.snap.LastActivity = t.now()
	if msg.Kind == logic.KindReading {
		t.snap.HasReading = true
		t.snap.LastReading = msg.Reading
	} else {
		t.snap.LastCommand = msg.Command
	}
}

// RecordParseError counts a malformed inbound payload.
func (t *Tracker) RecordParseError() {
	t.mu.Lock()
	t.snap.ParseErrors++
	t.mu.Unlock()
}

// RecordUnexpected counts a well-formed message the role has no transition for.
func (t *Tracker) RecordUnexpected() {
	t.mu.Lock()
	t.snap.Unexpected++
	t.mu.Unlock()
}

// RecordSendError counts a failed outbound send.
func (t *Tracker) RecordSendError() {
	t.mu.Lock()
	t.snap.SendErrors++
	t.mu.Unlock()
}

// SetSession copies the field unit's session state.
func (t *Tracker) SetSession(s logic.Session) {
	t.mu.Lock()
	t.snap.SessionTemp = s.Temp
	t.snap.SessionState = s.State
	t.snap.Cycles = s.Cycles
	t.mu.Unlock()
}

// SetHalted marks the node as parked in its terminal wait state.
func (t *Tracker) SetHalted(reason string) {
	t.mu.Lock()
	t.snap.Halted = true
	t.snap.HaltedReason = reason
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the node state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
