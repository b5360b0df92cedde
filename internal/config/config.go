// Package config resolves a node's configuration from compiled-in defaults,
// an optional YAML file, environment variables and command line flags.
// Later layers override earlier ones.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/thermo-loop/internal/env"
	"github.com/sweeney/thermo-loop/internal/gpio"
	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/sweeney/thermo-loop/internal/protocol"
)

// Roles a node can take.
const (
	RoleSink  = "sink"
	RoleField = "field"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "THERMO_"

// Config is the effective configuration of one node.
type Config struct {
	Role string `yaml:"role"`
	Addr string `yaml:"addr"` // own address; defaults to the sink address for the sink role
	Sink string `yaml:"sink"`

	Setpoint    int `yaml:"setpoint"`
	Tolerance   int `yaml:"tolerance"`
	BootstrapLo int `yaml:"bootstrap_lo"`
	BootstrapHi int `yaml:"bootstrap_hi"`

	Settle      time.Duration `yaml:"settle"`
	Period      time.Duration `yaml:"period"`
	ReplyPacing time.Duration `yaml:"reply_pacing"`
	Heartbeat   time.Duration `yaml:"heartbeat"`

	Broker   string `yaml:"broker"`
	HTTPAddr string `yaml:"http"`

	Wire      string `yaml:"wire"`
	Actuation string `yaml:"actuation"`
	Env       string `yaml:"env"`
	Seed      int64  `yaml:"seed"` // 0 derives the PRNG seed from address and clock

	// Sensor selects the seed source: empty for random, "ds18b20" for the
	// first 1-wire probe, or "ds18b20:<id>" for a specific one.
	Sensor string `yaml:"sensor"`

	LEDs     bool `yaml:"leds"`
	PinRed   int  `yaml:"pin_red"`
	PinGreen int  `yaml:"pin_green"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Role:        RoleSink,
		Sink:        protocol.SinkAddr.String(),
		Setpoint:    25,
		Tolerance:   2,
		BootstrapLo: logic.BootstrapLo,
		BootstrapHi: logic.BootstrapHi,
		Settle:      120 * time.Second,
		Period:      30 * time.Second,
		Heartbeat:   15 * time.Minute,
		Broker:      "tcp://localhost:1883",
		HTTPAddr:    ":8080",
		Wire:        "text",
		Actuation:   "step",
		Env:         string(env.ProfileDrift),
		PinRed:      gpio.DefaultPinRed,
		PinGreen:    gpio.DefaultPinGreen,
	}
}

// LoadFile overlays the YAML document at path onto cfg. Unknown keys are errors.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// DotEnvLookup reads a .env file and returns a lookup that prefers the
// process environment over the file. A missing file is not an error.
func DotEnvLookup(path string) (LookupFunc, error) {
	vars := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			vars = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays THERMO_* variables found by lookup onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, f := range fields(cfg) {
		key := EnvKey(f.name)
		v, ok := lookup(key)
		if !ok {
			continue
		}
		if err := f.set(v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// EnvKey maps a flag name such as "reply-pacing" to THERMO_REPLY_PACING.
func EnvKey(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// field binds a flag/env name to a setter on one Config field.
type field struct {
	name string
	set  func(string) error
}

func fields(cfg *Config) []field {
	str := func(p *string) func(string) error {
		return func(v string) error { *p = v; return nil }
	}
	num := func(p *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*p = n
			return nil
		}
	}
	dur := func(p *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*p = d
			return nil
		}
	}
	return []field{
		{"role", str(&cfg.Role)},
		{"addr", str(&cfg.Addr)},
		{"sink", str(&cfg.Sink)},
		{"setpoint", num(&cfg.Setpoint)},
		{"tolerance", num(&cfg.Tolerance)},
		{"bootstrap-lo", num(&cfg.BootstrapLo)},
		{"bootstrap-hi", num(&cfg.BootstrapHi)},
		{"settle", dur(&cfg.Settle)},
		{"period", dur(&cfg.Period)},
		{"reply-pacing", dur(&cfg.ReplyPacing)},
		{"heartbeat", dur(&cfg.Heartbeat)},
		{"broker", str(&cfg.Broker)},
		{"http", str(&cfg.HTTPAddr)},
		{"wire", str(&cfg.Wire)},
		{"actuation", str(&cfg.Actuation)},
		{"env", str(&cfg.Env)},
		{"seed", func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			cfg.Seed = n
			return nil
		}},
		{"sensor", str(&cfg.Sensor)},
		{"leds", func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			cfg.LEDs = b
			return nil
		}},
		{"pin-red", num(&cfg.PinRed)},
		{"pin-green", num(&cfg.PinGreen)},
	}
}

// SelfAddr returns the node's own address. A sink without an explicit
// address uses the sink address.
func (c Config) SelfAddr() (protocol.Addr, error) {
	if c.Addr == "" {
		if c.Role == RoleSink {
			return protocol.ParseAddr(c.Sink)
		}
		return protocol.Addr{}, errors.New("field unit needs an address")
	}
	return protocol.ParseAddr(c.Addr)
}

// SinkAddr returns the configured sink address.
func (c Config) SinkAddr() (protocol.Addr, error) {
	return protocol.ParseAddr(c.Sink)
}

// Zone returns the acceptable band.
func (c Config) Zone() logic.Zone {
	return logic.Zone{Setpoint: c.Setpoint, Tolerance: c.Tolerance}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Role != RoleSink && c.Role != RoleField {
		return fmt.Errorf("role must be %q or %q, got %q", RoleSink, RoleField, c.Role)
	}
	sink, err := c.SinkAddr()
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	self, err := c.SelfAddr()
	if err != nil {
		return fmt.Errorf("addr: %w", err)
	}
	// Field units publish to the sink address, so a sink listening anywhere
	// else hears nothing and a field unit on it hears its own readings.
	if c.Role == RoleSink && self != sink {
		return fmt.Errorf("addr: sink listens on %s but field units publish to %s", self, sink)
	}
	if c.Role == RoleField && self == sink {
		return fmt.Errorf("addr: field unit cannot use the sink address %s", sink)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %d", c.Tolerance)
	}
	if c.BootstrapLo > c.BootstrapHi {
		return fmt.Errorf("bootstrap range inverted: %d > %d", c.BootstrapLo, c.BootstrapHi)
	}
	if c.Role == RoleField && c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %v", c.Period)
	}
	if c.Settle < 0 || c.ReplyPacing < 0 || c.Heartbeat < 0 {
		return errors.New("durations must not be negative")
	}
	if _, err := protocol.CodecByName(c.Wire); err != nil {
		return err
	}
	if _, err := logic.PolicyByName(c.Actuation); err != nil {
		return err
	}
	if _, err := env.New(env.Profile(c.Env), nil); err != nil {
		return err
	}
	if c.Sensor != "" && c.Sensor != "ds18b20" && !strings.HasPrefix(c.Sensor, "ds18b20:") {
		return fmt.Errorf("unknown sensor %q", c.Sensor)
	}
	return nil
}

// YAML renders the configuration as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
