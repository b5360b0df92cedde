package logic

import "fmt"

// ActuationPolicy converts a HEAT or COOL command into a new tracked temperature.
type ActuationPolicy interface {
	Actuate(temp int, cmd Command, setpoint int) int
	Name() string
}

// StepPolicy moves the tracked temperature one degree per command.
// It is the default: each round trip closes the gap to the setpoint by one,
// so the loop finishes in |start - setpoint| round trips.
type StepPolicy struct{}

// Actuate applies a unit step.
func (StepPolicy) Actuate(temp int, cmd Command, _ int) int {
	switch cmd {
	case CommandHeat:
		return temp + 1
	case CommandCool:
		return temp - 1
	}
	return temp
}

// Name returns "step".
func (StepPolicy) Name() string { return "step" }

// ForcePolicy snaps the tracked temperature straight to the setpoint.
type ForcePolicy struct{}

// Actuate returns the setpoint for HEAT and COOL.
func (ForcePolicy) Actuate(temp int, cmd Command, setpoint int) int {
	if cmd == CommandHeat || cmd == CommandCool {
		return setpoint
	}
	return temp
}

// Name returns "force".
func (ForcePolicy) Name() string { return "force" }

// PolicyByName resolves a configured policy name. Empty selects StepPolicy.
func PolicyByName(name string) (ActuationPolicy, error) {
	switch name {
	case "", "step":
		return StepPolicy{}, nil
	case "force":
		return ForcePolicy{}, nil
	}
	return nil, fmt.Errorf("unknown actuation policy %q", name)
}

// RandomSeeder draws uniformly from the inclusive range [Lo, Hi].
type RandomSeeder struct {
	Rand Rand
	Lo   int
	Hi   int
}

// Bootstrap range for reseeding on STABLE/RESTART.
const (
	BootstrapLo = 0
	BootstrapHi = 50
)

// NewRandomSeeder returns a seeder over the bootstrap range.
func NewRandomSeeder(r Rand) *RandomSeeder {
	return &RandomSeeder{Rand: r, Lo: BootstrapLo, Hi: BootstrapHi}
}

// Seed returns a value in [Lo, Hi].
func (s *RandomSeeder) Seed() int {
	if s.Hi <= s.Lo {
		return s.Lo
	}
	return s.Lo + s.Rand.Intn(s.Hi-s.Lo+1)
}
