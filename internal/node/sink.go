package node

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/thermo-loop/internal/gpio"
	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/sweeney/thermo-loop/internal/mqtt"
	"github.com/sweeney/thermo-loop/internal/protocol"
	"github.com/sweeney/thermo-loop/internal/status"
)

// SinkConfig wires a Sink.
type SinkConfig struct {
	Link       mqtt.Link
	Codec      protocol.Codec
	Controller *logic.Controller
	LEDs       gpio.Indicator  // optional
	Tracker    *status.Tracker // optional
}

// Sink answers every well-formed message from a field unit with exactly one reply.
type Sink struct {
	link    mqtt.Link
	codec   protocol.Codec
	ctrl    *logic.Controller
	leds    gpio.Indicator
	tracker *status.Tracker
}

// NewSink creates a Sink.
func NewSink(cfg SinkConfig) *Sink {
	leds, tracker := defaults(cfg.LEDs, cfg.Tracker)
	return &Sink{
		link:    cfg.Link,
		codec:   cfg.Codec,
		ctrl:    cfg.Controller,
		leds:    leds,
		tracker: tracker,
	}
}

// Handle processes one inbound packet and replies to its sender.
func (s *Sink) Handle(p mqtt.Packet) {
	msg, ok := decode(s.codec, s.tracker, p)
	if !ok {
		return
	}

	reply, err := s.ctrl.Respond(msg)
	if err != nil {
		if errors.Is(err, logic.ErrUnexpectedMessage) {
			s.tracker.RecordUnexpected()
		}
		log.Printf("from %s: %v", p.From, err)
		return
	}

	if msg.Kind == logic.KindReading {
		log.Printf("reading %d from %s: %s", msg.Reading, p.From, reply.Command)
		setLEDs(s.leds, reply.Command)
	} else {
		log.Printf("%s from %s: %s", msg.Command, p.From, reply.Command)
	}
	send(s.link, s.codec, s.tracker, p.From, reply)
}

// Run serves inbound packets until ctx is cancelled. Each heartbeat tick
// publishes a status event.
func (s *Sink) Run(ctx context.Context, heartbeat <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.link.Ready():
			for _, p := range s.link.Drain() {
				s.Handle(p)
			}
			s.tracker.SetMQTTConnected(s.link.IsConnected())
		case <-heartbeat:
			PublishStatus(s.link, s.tracker, EventHeartbeat, "", false)
		}
	}
}
