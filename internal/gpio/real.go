//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives LEDs on actual hardware using the Linux GPIO character device.
type RealIndicator struct {
	chip  *gpiocdev.Chip
	red   *gpiocdev.Line
	green *gpiocdev.Line
}

// NewRealIndicator requests the two LED lines as outputs, initially off.
func NewRealIndicator(pinRed, pinGreen int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	red, err := chip.RequestLine(pinRed, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request red pin %d: %w", pinRed, err)
	}

	green, err := chip.RequestLine(pinGreen, gpiocdev.AsOutput(0))
	if err != nil {
		red.Close()
		chip.Close()
		return nil, fmt.Errorf("request green pin %d: %w", pinGreen, err)
	}

	return &RealIndicator{
		chip:  chip,
		red:   red,
		green: green,
	}, nil
}

// Set drives both LED lines.
func (r *RealIndicator) Set(red, green bool) error {
	if err := r.red.SetValue(boolToValue(red)); err != nil {
		return fmt.Errorf("set red pin: %w", err)
	}
	if err := r.green.SetValue(boolToValue(green)); err != nil {
		return fmt.Errorf("set green pin: %w", err)
	}
	return nil
}

// Close switches the LEDs off and returns the lines to inputs with pull-down
// (matching Pi boot defaults) before releasing them.
func (r *RealIndicator) Close() error {
	var errs []error

	for name, line := range map[string]*gpiocdev.Line{"red": r.red, "green": r.green} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
