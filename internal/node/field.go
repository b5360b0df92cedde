package node

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweeney/thermo-loop/internal/gpio"
	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/sweeney/thermo-loop/internal/mqtt"
	"github.com/sweeney/thermo-loop/internal/protocol"
	"github.com/sweeney/thermo-loop/internal/status"
)

// FieldConfig wires a Field.
type FieldConfig struct {
	Self    protocol.Addr
	Sink    protocol.Addr
	Link    mqtt.Link
	Codec   protocol.Codec
	Unit    *logic.FieldUnit
	Session *logic.Session
	Env     logic.Perturber // optional background noise
	Pacing  time.Duration   // minimum gap between command replies; 0 is unpaced
	LEDs    gpio.Indicator  // optional
	Tracker *status.Tracker // optional
}

// Field runs a field unit: periodic background samples to the sink and an
// immediate reply to every command.
type Field struct {
	self    protocol.Addr
	sink    protocol.Addr
	link    mqtt.Link
	codec   protocol.Codec
	unit    *logic.FieldUnit
	sess    *logic.Session
	env     logic.Perturber
	pacer   *rate.Limiter
	leds    gpio.Indicator
	tracker *status.Tracker
}

// NewField creates a Field.
func NewField(cfg FieldConfig) *Field {
	leds, tracker := defaults(cfg.LEDs, cfg.Tracker)
	f := &Field{
		self:    cfg.Self,
		sink:    cfg.Sink,
		link:    cfg.Link,
		codec:   cfg.Codec,
		unit:    cfg.Unit,
		sess:    cfg.Session,
		env:     cfg.Env,
		pacer:   NewPacer(cfg.Pacing),
		leds:    leds,
		tracker: tracker,
	}
	f.tracker.SetSession(*f.sess)
	return f
}

// NewPacer returns a limiter allowing one reply per gap. A zero gap never blocks.
func NewPacer(gap time.Duration) *rate.Limiter {
	if gap <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(gap), 1)
}

// Session returns a copy of the tracked session.
func (f *Field) Session() logic.Session {
	return *f.sess
}

// Misconfigured reports whether the unit was given the sink's own address.
func (f *Field) Misconfigured() bool {
	return f.self == f.sink
}

// Sample runs one background sampling step and reports to the sink.
func (f *Field) Sample() {
	msg := f.unit.Sample(f.sess, f.env)
	f.tracker.SetSession(*f.sess)
	log.Printf("sample: %d", msg.Reading)
	send(f.link, f.codec, f.tracker, f.sink, msg)
}

// Handle processes one inbound packet. Only commands from the sink are acted on.
func (f *Field) Handle(ctx context.Context, p mqtt.Packet) {
	if p.From != f.sink {
		log.Printf("ignore frame from %s: not the sink", p.From)
		f.tracker.RecordUnexpected()
		return
	}
	msg, ok := decode(f.codec, f.tracker, p)
	if !ok {
		return
	}
	if msg.Kind != logic.KindCommand {
		log.Printf("unexpected %s from %s", msg, p.From)
		f.tracker.RecordUnexpected()
		return
	}

	reply, ok := f.unit.Handle(f.sess, msg.Command)
	f.tracker.SetSession(*f.sess)
	if !ok {
		log.Printf("unexpected %s from %s", msg, p.From)
		f.tracker.RecordUnexpected()
		return
	}

	switch {
	case reply.IsCommand(logic.CommandFinished):
		log.Printf("%s: setpoint %d reached", msg.Command, f.sess.Temp)
		setLEDs(f.leds, logic.CommandFinished)
	case msg.Command == logic.CommandHeat || msg.Command == logic.CommandCool:
		log.Printf("%s: now %d", msg.Command, f.sess.Temp)
		setLEDs(f.leds, msg.Command)
	default:
		log.Printf("%s: reseeded to %d (cycle %d)", msg.Command, f.sess.Temp, f.sess.Cycles)
		setLEDs(f.leds, msg.Command)
	}

	if err := f.pacer.Wait(ctx); err != nil {
		return
	}
	send(f.link, f.codec, f.tracker, f.sink, reply)
}

// Run drives the field unit until ctx is cancelled. Nothing is sampled or
// handled until settle fires; a nil settle starts immediately. A unit
// configured with the sink's address parks until cancelled.
func (f *Field) Run(ctx context.Context, settle, tick, heartbeat <-chan time.Time) error {
	if f.Misconfigured() {
		log.Printf("address %s is the sink address; waiting", f.self)
		f.tracker.SetHalted("address conflicts with sink " + f.sink.String())
		PublishStatus(f.link, f.tracker, EventHalted, "ADDRESS_CONFLICT", true)
		<-ctx.Done()
		return nil
	}

	var (
		ready <-chan struct{}
		ticks <-chan time.Time
	)
	start := func() {
		ready = f.link.Ready()
		ticks = tick
		f.Sample()
	}
	if settle == nil {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-settle:
			settle = nil
			log.Printf("settled; sampling")
			start()
		case <-ticks:
			f.Sample()
		case <-ready:
			for _, p := range f.link.Drain() {
				f.Handle(ctx, p)
			}
			f.tracker.SetMQTTConnected(f.link.IsConnected())
		case <-heartbeat:
			PublishStatus(f.link, f.tracker, EventHeartbeat, "", false)
		}
	}
}
