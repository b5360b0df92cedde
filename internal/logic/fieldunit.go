package logic

// FieldUnit is the edge node's negotiation logic. It carries configuration
// only; all mutable state lives in the Session passed to each call.
type FieldUnit struct {
	Setpoint int
	Policy   ActuationPolicy
	Seeder   Seeder
}

// NewFieldUnit creates a field unit. A nil policy selects StepPolicy.
func NewFieldUnit(setpoint int, policy ActuationPolicy, seeder Seeder) *FieldUnit {
	if policy == nil {
		policy = StepPolicy{}
	}
	return &FieldUnit{Setpoint: setpoint, Policy: policy, Seeder: seeder}
}

// Handle applies one inbound command to the session and returns the reply.
// The bool is false when the command needs no reply.
func (f *FieldUnit) Handle(s *Session, cmd Command) (Message, bool) {
	switch cmd {
	case CommandHeat, CommandCool:
		s.State = StateActuating
		s.Temp = f.Policy.Actuate(s.Temp, cmd, f.Setpoint)
		s.Actuated = true
		if s.Temp == f.Setpoint {
			s.State = StateDone
			return CommandMessage(CommandFinished), true
		}
		s.State = StateReporting
		reply := ReadingMessage(s.Temp)
		s.State = StateAwaitingCommand
		return reply, true

	case CommandStable, CommandRestart:
		s.State = StateSampling
		s.Temp = f.Seeder.Seed()
		s.Actuated = false
		s.Cycles++
		s.State = StateAwaitingCommand
		return ReadingMessage(s.Temp), true
	}
	return Message{}, false
}

// Sample runs one background sampling step: a single bounded perturbation
// (skipped right after an actuation) followed by a report of the result.
// A nil Perturber reports the tracked value unchanged.
func (f *FieldUnit) Sample(s *Session, p Perturber) Message {
	s.State = StateSampling
	if s.Actuated {
		s.Actuated = false
	} else if p != nil {
		s.Temp = p.Perturb(s.Temp)
	}
	s.State = StateAwaitingCommand
	return ReadingMessage(s.Temp)
}
