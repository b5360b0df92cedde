// Package sensor reads real temperatures for seeding a field unit's session.
package sensor

import (
	"fmt"
	"log"
	"math"

	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/yryz/ds18b20"
)

// ReadFunc reads one sensor in degrees Celsius.
type ReadFunc func(address string) (float64, error)

// DS18B20Seeder seeds new sampling cycles from a 1-wire DS18B20 probe.
// Readings are rounded to whole degrees and clamped into [Lo, Hi].
// When the probe cannot be read the Fallback seeder is used instead.
type DS18B20Seeder struct {
	Address  string
	Lo       int
	Hi       int
	Fallback logic.Seeder

	read ReadFunc
}

// NewDS18B20Seeder returns a seeder for the probe at address. An empty
// address picks the first probe found on the bus.
func NewDS18B20Seeder(address string, fallback logic.Seeder) (*DS18B20Seeder, error) {
	if address == "" {
		ids, err := ds18b20.Sensors()
		if err != nil {
			return nil, fmt.Errorf("list ds18b20 sensors: %w", err)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no ds18b20 sensors found")
		}
		address = ids[0]
	}
	return newSeeder(address, fallback, ds18b20.Temperature), nil
}

func newSeeder(address string, fallback logic.Seeder, read ReadFunc) *DS18B20Seeder {
	return &DS18B20Seeder{
		Address:  address,
		Lo:       logic.BootstrapLo,
		Hi:       logic.BootstrapHi,
		Fallback: fallback,
		read:     read,
	}
}

// Seed implements logic.Seeder.
func (s *DS18B20Seeder) Seed() int {
	c, err := s.read(s.Address)
	if err != nil {
		log.Printf("sensor: read %s: %v, using fallback seed", s.Address, err)
		return s.Fallback.Seed()
	}
	v := int(math.Round(c))
	if v < s.Lo {
		v = s.Lo
	}
	if v > s.Hi {
		v = s.Hi
	}
	return v
}
