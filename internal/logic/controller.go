package logic

import "fmt"

// Controller is the sink's decision engine. It holds no per-sender state:
// every reply is a pure function of the incoming message and the Zone.
type Controller struct {
	Zone Zone
}

// NewController creates a controller for the given band.
func NewController(zone Zone) *Controller {
	return &Controller{Zone: zone}
}

// Decide maps a reading to exactly one command.
// Both band boundaries are in range and map to STABLE.
func (c *Controller) Decide(reading int) Command {
	if reading < c.Zone.Min() {
		return CommandHeat
	}
	if reading > c.Zone.Max() {
		return CommandCool
	}
	return CommandStable
}

// Respond returns the single reply for an inbound message.
// A FINISHED status is answered with RESTART without evaluating any reading.
func (c *Controller) Respond(msg Message) (Message, error) {
	switch msg.Kind {
	case KindReading:
		return CommandMessage(c.Decide(msg.Reading)), nil
	case KindCommand:
		if msg.Command == CommandFinished {
			return CommandMessage(CommandRestart), nil
		}
		return Message{}, fmt.Errorf("controller got %s: %w", msg.Command, ErrUnexpectedMessage)
	default:
		return Message{}, fmt.Errorf("controller got kind %d: %w", msg.Kind, ErrUnexpectedMessage)
	}
}
