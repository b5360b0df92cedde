// Package gpio drives the node's status LEDs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Indicator lights the red and green status LEDs.
type Indicator interface {
	// Set drives both LEDs; true = lit.
	Set(red, green bool) error

	// Close turns the LEDs off and releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinRed   = 17
	DefaultPinGreen = 27
)

// Nop is an Indicator for nodes without LEDs.
type Nop struct{}

// Set does nothing.
func (Nop) Set(red, green bool) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
