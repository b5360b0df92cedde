// Command thermo-node runs one node of the thermo-loop temperature regulation
// protocol: either the sink that decides or a field unit that actuates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/thermo-loop/internal/config"
	"github.com/sweeney/thermo-loop/internal/env"
	"github.com/sweeney/thermo-loop/internal/gpio"
	"github.com/sweeney/thermo-loop/internal/logic"
	"github.com/sweeney/thermo-loop/internal/mqtt"
	"github.com/sweeney/thermo-loop/internal/node"
	"github.com/sweeney/thermo-loop/internal/protocol"
	"github.com/sweeney/thermo-loop/internal/sensor"
	"github.com/sweeney/thermo-loop/internal/status"
	"github.com/sweeney/thermo-loop/internal/web"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("thermo-node", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	flags := config.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	lookup, err := config.DotEnvLookup(flags.DotEnvPath)
	if err != nil {
		return err
	}
	cfg, err := flags.Resolve(lookup)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if flags.PrintConfig {
		data, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	}

	// Validate has already checked these.
	self, _ := cfg.SelfAddr()
	sinkAddr, _ := cfg.SinkAddr()
	codec, _ := protocol.CodecByName(cfg.Wire)

	seed := cfg.Seed
	if seed == 0 {
		seed = self.Seed(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	leds, err := newIndicator(cfg)
	if err != nil {
		return fmt.Errorf("init leds: %w", err)
	}
	defer leds.Close()

	link, err := mqtt.NewRealLink(cfg.Broker, self)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer link.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	node.PublishStatus(link, tracker, node.EventStartup, "", true)

	var loop func(ctx context.Context) error
	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	switch cfg.Role {
	case config.RoleSink:
		sink := node.NewSink(node.SinkConfig{
			Link:       link,
			Codec:      codec,
			Controller: logic.NewController(cfg.Zone()),
			LEDs:       leds,
			Tracker:    tracker,
		})
		loop = func(ctx context.Context) error { return sink.Run(ctx, heartbeat) }

	case config.RoleField:
		field, err := newField(cfg, self, sinkAddr, link, codec, rng, leds, tracker)
		if err != nil {
			return err
		}
		jitter := rand.New(rand.NewSource(seed + 1))
		loop = func(ctx context.Context) error {
			return field.Run(ctx, time.After(cfg.Settle), jitterTicks(ctx, cfg.Period, jitter), heartbeat)
		}
	}

	var srv *web.Server
	if cfg.HTTPAddr != "" {
		srv = web.New(cfg.HTTPAddr, tracker)
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: role=%s addr=%s sink=%s zone=%d±%d wire=%s broker=%s",
		cfg.Role, self, sinkAddr, cfg.Setpoint, cfg.Tolerance, cfg.Wire, cfg.Broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason, err := serve(context.Background(), loop, srv, sigCh)
	node.PublishStatus(link, tracker, node.EventShutdown, reason, true)
	return err
}

func newIndicator(cfg config.Config) (gpio.Indicator, error) {
	if !cfg.LEDs {
		return gpio.Nop{}, nil
	}
	ind, err := gpio.NewRealIndicator(cfg.PinRed, cfg.PinGreen)
	if err != nil {
		return nil, err
	}
	return ind, nil
}

// newSeeder picks the source of fresh temperatures for each sampling cycle.
func newSeeder(cfg config.Config, rng *rand.Rand) (logic.Seeder, error) {
	random := &logic.RandomSeeder{Rand: rng, Lo: cfg.BootstrapLo, Hi: cfg.BootstrapHi}
	if cfg.Sensor == "" {
		return random, nil
	}
	s, err := sensor.NewDS18B20Seeder(strings.TrimPrefix(strings.TrimPrefix(cfg.Sensor, "ds18b20"), ":"), random)
	if err != nil {
		return nil, fmt.Errorf("init sensor: %w", err)
	}
	s.Lo, s.Hi = cfg.BootstrapLo, cfg.BootstrapHi
	return s, nil
}

func newField(cfg config.Config, self, sinkAddr protocol.Addr, link mqtt.Link, codec protocol.Codec, rng *rand.Rand, leds gpio.Indicator, tracker *status.Tracker) (*node.Field, error) {
	policy, err := logic.PolicyByName(cfg.Actuation)
	if err != nil {
		return nil, err
	}
	seeder, err := newSeeder(cfg, rng)
	if err != nil {
		return nil, err
	}
	sim, err := env.New(env.Profile(cfg.Env), rng)
	if err != nil {
		return nil, err
	}
	var perturber logic.Perturber
	if sim != nil {
		perturber = sim
	}
	return node.NewField(node.FieldConfig{
		Self:    self,
		Sink:    sinkAddr,
		Link:    link,
		Codec:   codec,
		Unit:    logic.NewFieldUnit(cfg.Setpoint, policy, seeder),
		Session: logic.NewSession(seeder.Seed()),
		Env:     perturber,
		Pacing:  cfg.ReplyPacing,
		LEDs:    leds,
		Tracker: tracker,
	}), nil
}

func statusConfig(cfg config.Config) status.Config {
	self, _ := cfg.SelfAddr()
	sc := status.Config{
		Role:        cfg.Role,
		Addr:        self.String(),
		Sink:        cfg.Sink,
		Setpoint:    cfg.Setpoint,
		Tolerance:   cfg.Tolerance,
		Wire:        cfg.Wire,
		PacingMs:    cfg.ReplyPacing.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	}
	if cfg.Role == config.RoleField {
		sc.Actuation = cfg.Actuation
		sc.Env = cfg.Env
		sc.PeriodMs = cfg.Period.Milliseconds()
		sc.SettleMs = cfg.Settle.Milliseconds()
	}
	return sc
}

// serve runs the node loop and the optional web server until a signal
// arrives or one of them fails. It returns the signal name, if any.
func serve(parent context.Context, loop func(context.Context) error, srv *web.Server, sig <-chan os.Signal) (string, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var reason string
	g.Go(func() error {
		select {
		case s := <-sig:
			reason = signalName(s)
			log.Printf("received %v, shutting down", s)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		if err := loop(gctx); err != nil {
			return fmt.Errorf("node: %w", err)
		}
		return nil
	})

	if srv != nil {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	err := g.Wait()
	return reason, err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// jitterTicks fires once per period at a random offset within that period.
// A tick nobody takes before its period ends is dropped, so a reader that
// stalls sees at most the current period's tick and never a backlog.
// The channel is abandoned when ctx is done.
func jitterTicks(ctx context.Context, period time.Duration, r *rand.Rand) <-chan time.Time {
	ch := make(chan time.Time)
	go func() {
		window := time.Now()
		for {
			if behind := time.Since(window); behind >= period {
				window = window.Add(behind / period * period)
			}
			end := window.Add(period)
			if !sleepUntil(ctx, window.Add(time.Duration(r.Int63n(int64(period))))) {
				return
			}
			expire := time.NewTimer(time.Until(end))
			select {
			case ch <- time.Now():
				expire.Stop()
			case <-expire.C:
			case <-ctx.Done():
				expire.Stop()
				return
			}
			window = end
		}
	}()
	return ch
}

// sleepUntil blocks until at, reporting false if ctx ends first.
func sleepUntil(ctx context.Context, at time.Time) bool {
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
