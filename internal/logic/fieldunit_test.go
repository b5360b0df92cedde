package logic

import (
	"math/rand"
	"testing"
)

// fixedSeeder always returns the same value.
type fixedSeeder int

func (f fixedSeeder) Seed() int { return int(f) }

// offsetPerturber adds a constant.
type offsetPerturber int

func (o offsetPerturber) Perturb(temp int) int { return temp + int(o) }

func newStepUnit(seed int) *FieldUnit {
	return NewFieldUnit(25, StepPolicy{}, fixedSeeder(seed))
}

func TestHandleHeatReportsReading(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(23)

	reply, ok := f.Handle(s, CommandHeat)
	if !ok {
		t.Fatal("expected a reply")
	}
	if s.Temp != 24 {
		t.Errorf("Temp: got %d, want 24", s.Temp)
	}
	if reply != ReadingMessage(24) {
		t.Errorf("reply: got %s, want 24C", reply)
	}
	if s.State != StateAwaitingCommand {
		t.Errorf("State: got %s, want %s", s.State, StateAwaitingCommand)
	}
	if !s.Actuated {
		t.Error("expected Actuated after HEAT")
	}
}

func TestHandleHeatReachesSetpoint(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(24)

	reply, ok := f.Handle(s, CommandHeat)
	if !ok {
		t.Fatal("expected a reply")
	}
	if s.Temp != 25 {
		t.Errorf("Temp: got %d, want 25", s.Temp)
	}
	if !reply.IsCommand(CommandFinished) {
		t.Errorf("reply: got %s, want FINISHED", reply)
	}
	if s.State != StateDone {
		t.Errorf("State: got %s, want %s", s.State, StateDone)
	}
}

func TestHandleCoolSteps(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(30)

	reply, _ := f.Handle(s, CommandCool)
	if s.Temp != 29 {
		t.Errorf("Temp: got %d, want 29", s.Temp)
	}
	if reply != ReadingMessage(29) {
		t.Errorf("reply: got %s, want 29C", reply)
	}
}

func TestHandleRestartReseeds(t *testing.T) {
	f := NewFieldUnit(25, StepPolicy{}, NewRandomSeeder(rand.New(rand.NewSource(7))))
	s := NewSession(25)
	s.State = StateDone

	reply, ok := f.Handle(s, CommandRestart)
	if !ok {
		t.Fatal("expected a reply")
	}
	if s.Temp < BootstrapLo || s.Temp > BootstrapHi {
		t.Errorf("reseeded temp %d outside [%d,%d]", s.Temp, BootstrapLo, BootstrapHi)
	}
	if reply != ReadingMessage(s.Temp) {
		t.Errorf("reply: got %s, want %dC", reply, s.Temp)
	}
	if s.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", s.Cycles)
	}
	if s.State != StateAwaitingCommand {
		t.Errorf("State: got %s, want %s", s.State, StateAwaitingCommand)
	}
}

func TestHandleStableAlwaysReseedsInRange(t *testing.T) {
	f := NewFieldUnit(25, StepPolicy{}, NewRandomSeeder(rand.New(rand.NewSource(42))))

	starts := []int{-100, 0, 25, 50, 1000}
	for _, start := range starts {
		for i := 0; i < 200; i++ {
			s := NewSession(start)
			s.Actuated = true
			reply, ok := f.Handle(s, CommandStable)
			if !ok {
				t.Fatal("expected a reply")
			}
			if s.Temp < 0 || s.Temp > 50 {
				t.Fatalf("start %d: reseeded temp %d outside [0,50]", start, s.Temp)
			}
			if reply.Kind != KindReading || reply.Reading != s.Temp {
				t.Fatalf("start %d: reply %s does not carry tracked temp %d", start, reply, s.Temp)
			}
			if s.Actuated {
				t.Fatal("reseed should clear Actuated")
			}
		}
	}
}

func TestHandleNoReply(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(20)

	for _, cmd := range []Command{CommandFinished, Command("BOGUS")} {
		if _, ok := f.Handle(s, cmd); ok {
			t.Errorf("%s: expected no reply", cmd)
		}
	}
	if s.Temp != 20 {
		t.Errorf("Temp changed to %d", s.Temp)
	}
}

func TestConvergenceRoundTrips(t *testing.T) {
	c := NewController(defaultZone())
	f := newStepUnit(0)

	for start := -20; start <= 70; start++ {
		s := NewSession(start)
		k := start - 25
		if k < 0 {
			k = -k
		}

		// Drive the tight loop directly: HEAT/COOL until FINISHED.
		trips := 0
		cmd := CommandHeat
		if start > 25 {
			cmd = CommandCool
		}
		if start == 25 {
			continue
		}
		for {
			trips++
			reply, ok := f.Handle(s, cmd)
			if !ok {
				t.Fatalf("start %d: no reply on trip %d", start, trips)
			}
			if reply.IsCommand(CommandFinished) {
				break
			}
			if trips > 200 {
				t.Fatalf("start %d: did not converge", start)
			}
			cmd = c.Decide(reply.Reading)
			if cmd == CommandStable {
				// Inside the band the controller stops actuating; keep
				// stepping toward the setpoint to count the full distance.
				if reply.Reading < 25 {
					cmd = CommandHeat
				} else {
					cmd = CommandCool
				}
			}
		}
		if trips != k {
			t.Errorf("start %d: converged in %d trips, want %d", start, trips, k)
		}
	}
}

func TestForcePolicyFinishesImmediately(t *testing.T) {
	f := NewFieldUnit(25, ForcePolicy{}, fixedSeeder(0))

	for _, start := range []int{0, 10, 40} {
		s := NewSession(start)
		cmd := CommandHeat
		if start > 25 {
			cmd = CommandCool
		}
		reply, _ := f.Handle(s, cmd)
		if !reply.IsCommand(CommandFinished) {
			t.Errorf("start %d: got %s, want FINISHED", start, reply)
		}
		if s.Temp != 25 {
			t.Errorf("start %d: Temp %d, want 25", start, s.Temp)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "step", false},
		{"step", "step", false},
		{"force", "force", false},
		{"average", "", true},
	}
	for _, tt := range tests {
		p, err := PolicyByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.name, err)
		}
		if p.Name() != tt.want {
			t.Errorf("%q: got %s, want %s", tt.name, p.Name(), tt.want)
		}
	}
}

func TestSampleAppliesPerturbation(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(20)

	msg := f.Sample(s, offsetPerturber(2))
	if s.Temp != 22 {
		t.Errorf("Temp: got %d, want 22", s.Temp)
	}
	if msg != ReadingMessage(22) {
		t.Errorf("msg: got %s, want 22C", msg)
	}
	if s.State != StateAwaitingCommand {
		t.Errorf("State: got %s, want %s", s.State, StateAwaitingCommand)
	}
}

func TestSampleSkipsPerturbationAfterActuation(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(20)
	f.Handle(s, CommandHeat) // 21, Actuated

	msg := f.Sample(s, offsetPerturber(5))
	if msg != ReadingMessage(21) {
		t.Errorf("first sample after actuation: got %s, want 21C", msg)
	}
	if s.Actuated {
		t.Error("Actuated should be cleared by the first sample")
	}

	msg = f.Sample(s, offsetPerturber(5))
	if msg != ReadingMessage(26) {
		t.Errorf("second sample: got %s, want 26C", msg)
	}
}

func TestSampleNilPerturber(t *testing.T) {
	f := newStepUnit(0)
	s := NewSession(17)

	if msg := f.Sample(s, nil); msg != ReadingMessage(17) {
		t.Errorf("got %s, want 17C", msg)
	}
}

func TestRandomSeederDegenerateRange(t *testing.T) {
	s := &RandomSeeder{Rand: rand.New(rand.NewSource(1)), Lo: 12, Hi: 12}
	if got := s.Seed(); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
}

func TestRandomSeederCoversRange(t *testing.T) {
	s := NewRandomSeeder(rand.New(rand.NewSource(3)))
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		v := s.Seed()
		if v < 0 || v > 50 {
			t.Fatalf("value %d outside [0,50]", v)
		}
		seen[v] = true
	}
	if !seen[0] || !seen[50] {
		t.Error("expected both range endpoints to be reachable")
	}
}
