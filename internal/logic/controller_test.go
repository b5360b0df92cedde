package logic

import (
	"errors"
	"testing"
)

func defaultZone() Zone {
	return Zone{Setpoint: 25, Tolerance: 2}
}

func TestZoneBounds(t *testing.T) {
	z := defaultZone()
	if z.Min() != 23 {
		t.Errorf("Min: got %d, want 23", z.Min())
	}
	if z.Max() != 27 {
		t.Errorf("Max: got %d, want 27", z.Max())
	}
	if !z.Contains(23) || !z.Contains(27) {
		t.Error("boundaries should be inside the zone")
	}
	if z.Contains(22) || z.Contains(28) {
		t.Error("values outside the band should not be contained")
	}
}

func TestDecideThresholds(t *testing.T) {
	c := NewController(defaultZone())

	tests := []struct {
		reading int
		want    Command
	}{
		{-40, CommandHeat},
		{0, CommandHeat},
		{22, CommandHeat},
		{23, CommandStable}, // lower boundary is inclusive
		{25, CommandStable},
		{27, CommandStable}, // upper boundary is inclusive
		{28, CommandCool},
		{30, CommandCool},
		{99, CommandCool},
	}

	for _, tt := range tests {
		if got := c.Decide(tt.reading); got != tt.want {
			t.Errorf("Decide(%d): got %s, want %s", tt.reading, got, tt.want)
		}
	}
}

func TestDecideAllReadings(t *testing.T) {
	z := Zone{Setpoint: 20, Tolerance: 3}
	c := NewController(z)

	for r := -100; r <= 100; r++ {
		got := c.Decide(r)
		switch {
		case r < z.Min():
			if got != CommandHeat {
				t.Fatalf("Decide(%d): got %s, want HEAT", r, got)
			}
		case r > z.Max():
			if got != CommandCool {
				t.Fatalf("Decide(%d): got %s, want COOL", r, got)
			}
		default:
			if got != CommandStable {
				t.Fatalf("Decide(%d): got %s, want STABLE", r, got)
			}
		}
	}
}

func TestRespondReadingTooHot(t *testing.T) {
	c := NewController(defaultZone())

	reply, err := c.Respond(ReadingMessage(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.IsCommand(CommandCool) {
		t.Errorf("expected COOL, got %s", reply)
	}
}

func TestRespondReadingInBand(t *testing.T) {
	c := NewController(defaultZone())

	reply, err := c.Respond(ReadingMessage(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.IsCommand(CommandStable) {
		t.Errorf("expected STABLE, got %s", reply)
	}
}

func TestRespondFinishedRestarts(t *testing.T) {
	c := NewController(defaultZone())

	reply, err := c.Respond(CommandMessage(CommandFinished))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.IsCommand(CommandRestart) {
		t.Errorf("expected RESTART, got %s", reply)
	}
}

func TestRespondUnexpectedCommand(t *testing.T) {
	c := NewController(defaultZone())

	for _, cmd := range []Command{CommandHeat, CommandCool, CommandStable, CommandRestart} {
		_, err := c.Respond(CommandMessage(cmd))
		if !errors.Is(err, ErrUnexpectedMessage) {
			t.Errorf("%s: expected ErrUnexpectedMessage, got %v", cmd, err)
		}
	}

	if _, err := c.Respond(Message{}); !errors.Is(err, ErrUnexpectedMessage) {
		t.Errorf("zero message: expected ErrUnexpectedMessage, got %v", err)
	}
}

func TestRespondIsStateless(t *testing.T) {
	c := NewController(defaultZone())

	// Interleaving unrelated messages must not change the answer for a reading.
	first, _ := c.Respond(ReadingMessage(10))
	c.Respond(CommandMessage(CommandFinished))
	c.Respond(ReadingMessage(40))
	second, _ := c.Respond(ReadingMessage(10))

	if first != second {
		t.Errorf("same reading gave different replies: %s vs %s", first, second)
	}
}
