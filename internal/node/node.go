// Package node hosts the negotiation logic on a transport. Each node runs a
// single select loop; handlers run to completion between suspension points.
package node

import (
	"errors"
	"log"
	"time"

	"github.com/sweeney/thermo-loop/internal/gpio"
	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/sweeney/thermo-loop/internal/mqtt"
	"github.com/sweeney/thermo-loop/internal/protocol"
	"github.com/sweeney/thermo-loop/internal/status"
)

// System event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventHalted    = "HALTED"
)

// PublishStatus sends a system event carrying the tracker's snapshot.
// Failures are logged, never fatal.
func PublishStatus(link mqtt.Link, tracker *status.Tracker, event, reason string, retained bool) {
	tracker.SetMQTTConnected(link.IsConnected())
	snap := tracker.Snapshot()
	err := link.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

// ledsFor maps a command to the indicator state: HEAT lights green,
// COOL lights red, anything else turns both off.
func ledsFor(cmd logic.Command) (red, green bool) {
	switch cmd {
	case logic.CommandHeat:
		return false, true
	case logic.CommandCool:
		return true, false
	}
	return false, false
}

func setLEDs(leds gpio.Indicator, cmd logic.Command) {
	red, green := ledsFor(cmd)
	if err := leds.Set(red, green); err != nil {
		log.Printf("led error: %v", err)
	}
}

// decode classifies a frame. Parse failures are logged and counted.
func decode(codec protocol.Codec, tracker *status.Tracker, p mqtt.Packet) (logic.Message, bool) {
	msg, err := codec.Decode(p.Payload)
	if err != nil {
		var perr *protocol.ParseError
		if errors.As(err, &perr) {
			tracker.RecordParseError()
		}
		log.Printf("drop frame from %s: %v", p.From, err)
		return logic.Message{}, false
	}
	tracker.RecordReceived(p.From.String(), msg)
	return msg, true
}

// send encodes msg and hands it to the link. Loss is not reported.
func send(link mqtt.Link, codec protocol.Codec, tracker *status.Tracker, dst protocol.Addr, msg logic.Message) {
	frame, err := codec.Encode(msg)
	if err != nil {
		log.Printf("encode %s: %v", msg, err)
		tracker.RecordSendError()
		return
	}
	if err := link.Send(dst, frame); err != nil {
		log.Printf("send %s to %s: %v", msg, dst, err)
		tracker.RecordSendError()
		return
	}
	tracker.RecordSent(dst.String(), msg)
}

func defaults(leds gpio.Indicator, tracker *status.Tracker) (gpio.Indicator, *status.Tracker) {
	if leds == nil {
		leds = gpio.Nop{}
	}
	if tracker == nil {
		tracker = status.NewTracker(time.Now(), status.Config{})
	}
	return leds, tracker
}
