package gpio

import "sync"

// LEDState is one recorded LED setting.
type LEDState struct {
	Red   bool
	Green bool
}

// FakeIndicator is a test double that records every LED setting.
type FakeIndicator struct {
	mu sync.Mutex

	// States contains every Set call in order.
	States []LEDState

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeIndicator creates a FakeIndicator with no history.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the requested state.
func (f *FakeIndicator) Set(red, green bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.mu.Lock()
	f.States = append(f.States, LEDState{Red: red, Green: green})
	f.mu.Unlock()
	return nil
}

// Last returns the most recent state, or all-off if none was recorded.
func (f *FakeIndicator) Last() LEDState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.States) == 0 {
		return LEDState{}
	}
	return f.States[len(f.States)-1]
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded history.
func (f *FakeIndicator) Reset() {
	f.mu.Lock()
	f.States = nil
	f.mu.Unlock()
	f.Closed = false
	f.SetError = nil
}
