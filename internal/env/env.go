// Package env simulates the room a field unit sits in. It is a noise source
// for demos and tests, not part of the negotiation.
package env

import (
	"fmt"

	"github.com/sweeney/thermo-loop/internal/logic"
)

// Profile names a drift model.
type Profile string

const (
	ProfileNone  Profile = "none"
	ProfileDrift Profile = "drift" // ±1.0 C in tenths, clamped to 15..35
	ProfileWalk  Profile = "walk"  // -1/0/+1 whole degree, clamped to 10..30
)

// Simulator perturbs a tracked temperature once per sample. It keeps tenths
// of a degree internally and always hands back whole degrees.
type Simulator struct {
	rand      logic.Rand
	walk      bool
	stepTenth int // drift is drawn from [-stepTenth/2, stepTenth/2)
	minTenth  int
	maxTenth  int
	residual  int // tenths carried between samples, always in [0, 10)
	last      int // whole degrees handed back by the previous call
}

// New builds a simulator for the given profile. ProfileNone returns a nil
// simulator, which never perturbs.
func New(profile Profile, r logic.Rand) (*Simulator, error) {
	switch profile {
	case ProfileNone, "":
		return nil, nil
	case ProfileDrift:
		return &Simulator{rand: r, stepTenth: 20, minTenth: 150, maxTenth: 350}, nil
	case ProfileWalk:
		return &Simulator{rand: r, walk: true, minTenth: 100, maxTenth: 300}, nil
	}
	return nil, fmt.Errorf("unknown environment profile %q", profile)
}

// Range returns the clamp bounds in whole degrees.
func (s *Simulator) Range() (lo, hi int) {
	return s.minTenth / 10, s.maxTenth / 10
}

// Perturb implements logic.Perturber. A nil simulator leaves temp unchanged.
func (s *Simulator) Perturb(temp int) int {
	if s == nil {
		return temp
	}
	var drift int
	if s.walk {
		drift = (s.rand.Intn(3) - 1) * 10
	} else {
		drift = s.rand.Intn(s.stepTenth) - s.stepTenth/2
	}

	// The carry only belongs to the value we returned. A reseed or an
	// adjustment replaces the tracked temperature and starts clean.
	if temp != s.last {
		s.residual = 0
	}
	tenths := temp*10 + s.residual + drift
	if tenths < s.minTenth {
		tenths = s.minTenth
	}
	if tenths > s.maxTenth {
		tenths = s.maxTenth
	}
	whole := tenths / 10
	s.residual = tenths - whole*10
	s.last = whole
	return whole
}
