// Package logic contains the pure negotiation logic for the temperature loop.
// This package has NO external dependencies (no MQTT, GPIO, OS, or time.Sleep).
// Randomness and perturbation are injected through small interfaces.
package logic

import (
	"errors"
	"strconv"
)

// Command is a fixed-vocabulary control signal exchanged between nodes.
type Command string

const (
	CommandHeat     Command = "HEAT"
	CommandCool     Command = "COOL"
	CommandStable   Command = "STABLE"
	CommandFinished Command = "FINISHED"
	CommandRestart  Command = "RESTART"
)

// Commands lists the full command vocabulary in a stable order.
var Commands = []Command{CommandHeat, CommandCool, CommandStable, CommandFinished, CommandRestart}

// Valid reports whether c belongs to the command vocabulary.
func (c Command) Valid() bool {
	switch c {
	case CommandHeat, CommandCool, CommandStable, CommandFinished, CommandRestart:
		return true
	}
	return false
}

// Kind discriminates the two message grammars.
type Kind uint8

const (
	KindReading Kind = iota + 1
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindReading:
		return "reading"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Message is a tagged protocol message: either a whole-degree reading or a command.
type Message struct {
	Kind    Kind
	Command Command // set when Kind == KindCommand
	Reading int     // degrees Celsius, set when Kind == KindReading
}

// ReadingMessage builds a reading message.
func ReadingMessage(temp int) Message {
	return Message{Kind: KindReading, Reading: temp}
}

// CommandMessage builds a command message.
func CommandMessage(cmd Command) Message {
	return Message{Kind: KindCommand, Command: cmd}
}

// IsCommand reports whether m carries the given command.
func (m Message) IsCommand(cmd Command) bool {
	return m.Kind == KindCommand && m.Command == cmd
}

func (m Message) String() string {
	if m.Kind == KindCommand {
		return string(m.Command)
	}
	if m.Kind == KindReading {
		return strconv.Itoa(m.Reading) + "C"
	}
	return "invalid"
}

// ErrUnexpectedMessage is returned when a node receives a message its role
// has no transition for.
var ErrUnexpectedMessage = errors.New("unexpected message")

// Zone is the inclusive acceptable band [Setpoint-Tolerance, Setpoint+Tolerance].
type Zone struct {
	Setpoint  int
	Tolerance int
}

// Min returns the lowest in-band temperature.
func (z Zone) Min() int { return z.Setpoint - z.Tolerance }

// Max returns the highest in-band temperature.
func (z Zone) Max() int { return z.Setpoint + z.Tolerance }

// Contains reports whether temp lies inside the band, boundaries included.
func (z Zone) Contains(temp int) bool {
	return temp >= z.Min() && temp <= z.Max()
}

// FieldState is the Field Unit's position in the negotiation.
type FieldState string

const (
	StateSampling        FieldState = "SAMPLING"
	StateAwaitingCommand FieldState = "AWAITING_COMMAND"
	StateActuating       FieldState = "ACTUATING"
	StateReporting       FieldState = "REPORTING"
	StateDone            FieldState = "DONE"
)

// Session is the Field Unit's mutable state. It is owned by exactly one
// host loop and passed into every handler call.
type Session struct {
	Temp     int
	State    FieldState
	Actuated bool // an actuation happened since the last background sample
	Cycles   int  // sampling cycles started by STABLE/RESTART
}

// NewSession returns a session at the given starting temperature.
func NewSession(temp int) *Session {
	return &Session{Temp: temp, State: StateSampling}
}

// Rand is the subset of *math/rand.Rand used by this package.
type Rand interface {
	Intn(n int) int
}

// Seeder produces a fresh tracked temperature when a sampling cycle restarts.
type Seeder interface {
	Seed() int
}

// Perturber applies a bounded environmental change to a tracked temperature.
type Perturber interface {
	Perturb(temp int) int
}
