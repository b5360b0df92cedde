package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command line values. Only flags the user actually set
// override lower layers.
type Flags struct {
	fs   *pflag.FlagSet
	vals Config

	ConfigPath  string
	DotEnvPath  string
	PrintConfig bool
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, vals: Default()}
	v := &f.vals

	fs.StringVarP(&f.ConfigPath, "config", "c", "", "YAML config file")
	fs.StringVar(&f.DotEnvPath, "env-file", ".env", "dotenv file with THERMO_* variables (missing is fine)")
	fs.BoolVar(&f.PrintConfig, "print-config", false, "print the effective config as YAML and exit")

	fs.StringVar(&v.Role, "role", v.Role, `node role: "sink" or "field"`)
	fs.StringVar(&v.Addr, "addr", v.Addr, "own address as group.id (sink defaults to --sink)")
	fs.StringVar(&v.Sink, "sink", v.Sink, "sink address as group.id")
	fs.IntVar(&v.Setpoint, "setpoint", v.Setpoint, "target temperature in whole degrees C")
	fs.IntVar(&v.Tolerance, "tolerance", v.Tolerance, "acceptable deviation from the setpoint")
	fs.IntVar(&v.BootstrapLo, "bootstrap-lo", v.BootstrapLo, "lowest reseeded temperature")
	fs.IntVar(&v.BootstrapHi, "bootstrap-hi", v.BootstrapHi, "highest reseeded temperature")
	fs.DurationVar(&v.Settle, "settle", v.Settle, "delay before a field unit's first sample")
	fs.DurationVar(&v.Period, "period", v.Period, "field unit sampling period")
	fs.DurationVar(&v.ReplyPacing, "reply-pacing", v.ReplyPacing, "minimum gap between field unit replies (0 disables)")
	fs.DurationVar(&v.Heartbeat, "heartbeat", v.Heartbeat, "heartbeat interval (0 to disable)")
	fs.StringVar(&v.Broker, "broker", v.Broker, "MQTT broker address")
	fs.StringVar(&v.HTTPAddr, "http", v.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&v.Wire, "wire", v.Wire, `wire codec: "text" or "cbor"`)
	fs.StringVar(&v.Actuation, "actuation", v.Actuation, `actuation policy: "step" or "force"`)
	fs.StringVar(&v.Env, "env", v.Env, `environment profile: "none", "drift" or "walk"`)
	fs.Int64Var(&v.Seed, "seed", v.Seed, "PRNG seed (0 derives one from address and clock)")
	fs.StringVar(&v.Sensor, "sensor", v.Sensor, `seed source: empty for random, "ds18b20" or "ds18b20:<id>"`)
	fs.BoolVar(&v.LEDs, "leds", v.LEDs, "drive the red/green status LEDs")
	fs.IntVar(&v.PinRed, "pin-red", v.PinRed, "BCM pin for the red LED")
	fs.IntVar(&v.PinGreen, "pin-green", v.PinGreen, "BCM pin for the green LED")
	return f
}

// Apply copies every flag the user set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *pflag.Flag) { set[fl.Name] = true })

	v := &f.vals
	apply := map[string]func(){
		"role":         func() { cfg.Role = v.Role },
		"addr":         func() { cfg.Addr = v.Addr },
		"sink":         func() { cfg.Sink = v.Sink },
		"setpoint":     func() { cfg.Setpoint = v.Setpoint },
		"tolerance":    func() { cfg.Tolerance = v.Tolerance },
		"bootstrap-lo": func() { cfg.BootstrapLo = v.BootstrapLo },
		"bootstrap-hi": func() { cfg.BootstrapHi = v.BootstrapHi },
		"settle":       func() { cfg.Settle = v.Settle },
		"period":       func() { cfg.Period = v.Period },
		"reply-pacing": func() { cfg.ReplyPacing = v.ReplyPacing },
		"heartbeat":    func() { cfg.Heartbeat = v.Heartbeat },
		"broker":       func() { cfg.Broker = v.Broker },
		"http":         func() { cfg.HTTPAddr = v.HTTPAddr },
		"wire":         func() { cfg.Wire = v.Wire },
		"actuation":    func() { cfg.Actuation = v.Actuation },
		"env":          func() { cfg.Env = v.Env },
		"seed":         func() { cfg.Seed = v.Seed },
		"sensor":       func() { cfg.Sensor = v.Sensor },
		"leds":         func() { cfg.LEDs = v.LEDs },
		"pin-red":      func() { cfg.PinRed = v.PinRed },
		"pin-green":    func() { cfg.PinGreen = v.PinGreen },
	}
	for name, fn := range apply {
		if set[name] {
			fn()
		}
	}
}

// Resolve builds the effective configuration: defaults, then the YAML file,
// then the environment, then flags. The result is validated.
func (f *Flags) Resolve(lookup LookupFunc) (Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		if err := LoadFile(f.ConfigPath, &cfg); err != nil {
			return Config{}, err
		}
	}
	if lookup != nil {
		if err := ApplyEnv(&cfg, lookup); err != nil {
			return Config{}, err
		}
	}
	f.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
