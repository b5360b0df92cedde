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
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Role          string       `json:"role"`
	Addr          string       `json:"addr"`
	Halted        bool         `json:"halted"`
	HaltedReason  string       `json:"halted_reason,omitempty"`
	LastReading   *int         `json:"last_reading"`
	LastCommand   string       `json:"last_command,omitempty"`
	LastPeer      string       `json:"last_peer,omitempty"`
	LastActivity  string       `json:"last_activity,omitempty"`
	Session       *SessionJSON `json:"session,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Sent          TrafficJSON  `json:"sent"`
	Received      TrafficJSON  `json:"received"`
	Errors        ErrorsJSON   `json:"errors"`
	Config        ConfigJSON   `json:"config"`
}

// SessionJSON is the field unit's tracked session.
type SessionJSON struct {
	Temp   int    `json:"temp"`
	State  string `json:"state"`
	Cycles int    `json:"cycles"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// TrafficJSON is one direction of message counts.
type TrafficJSON struct {
	Readings int `json:"readings"`
	Heat     int `json:"heat"`
	Cool     int `json:"cool"`
	Stable   int `json:"stable"`
	Finished int `json:"finished"`
	Restart  int `json:"restart"`
}

// ErrorsJSON counts absorbed failures.
type ErrorsJSON struct {
	Parse      int `json:"parse"`
	Unexpected int `json:"unexpected"`
	Send       int `json:"send"`
}

// ConfigJSON is the JSON representation of node config.
type ConfigJSON struct {
	Sink        string `json:"sink"`
	Setpoint    int    `json:"setpoint"`
	Tolerance   int    `json:"tolerance"`
	Actuation   string `json:"actuation,omitempty"`
	Wire        string `json:"wire"`
	Env         string `json:"env,omitempty"`
	PeriodMs    int64  `json:"period_ms,omitempty"`
	SettleMs    int64  `json:"settle_ms,omitempty"`
	PacingMs    int64  `json:"pacing_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func trafficJSON(t Traffic) TrafficJSON {
	return TrafficJSON{
		Readings: t.Readings,
		Heat:     t.Commands.Heat,
		Cool:     t.Commands.Cool,
		Stable:   t.Commands.Stable,
		Finished: t.Commands.Finished,
		Restart:  t.Commands.Restart,
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Role:          snap.Config.Role,
		Addr:          snap.Config.Addr,
		Halted:        snap.Halted,
		HaltedReason:  snap.HaltedReason,
		LastCommand:   string(snap.LastCommand),
		LastPeer:      snap.LastPeer,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sent:          trafficJSON(snap.Sent),
		Received:      trafficJSON(snap.Received),
		Errors: ErrorsJSON{
			Parse:      snap.ParseErrors,
			Unexpected: snap.Unexpected,
			Send:       snap.SendErrors,
		},
		Config: ConfigJSON{
			Sink:        snap.Config.Sink,
			Setpoint:    snap.Config.Setpoint,
			Tolerance:   snap.Config.Tolerance,
			Actuation:   snap.Config.Actuation,
			Wire:        snap.Config.Wire,
			Env:         snap.Config.Env,
			PeriodMs:    snap.Config.PeriodMs,
			SettleMs:    snap.Config.SettleMs,
			PacingMs:    snap.Config.PacingMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.HasReading {
		r := snap.LastReading
		inner.LastReading = &r
	}
	if !snap.LastActivity.IsZero() {
		inner.LastActivity = snap.LastActivity.UTC().Format(time.RFC3339)
	}
	if snap.SessionState != "" {
		inner.Session = &SessionJSON{
			Temp:   snap.SessionTemp,
			State:  string(snap.SessionState),
			Cycles: snap.Cycles,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// Status returns the JSON document for snap, used by the websocket feed.
func Status(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
