package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"islandsim/src/config"
	"islandsim/src/telemetry"
	"islandsim/src/universe"
	"islandsim/src/view"
)

var (
	engines = map[string]func(o *universe.Options, stateCh chan universe.Status, log *zap.Logger) (universe.Universe, error){
		"base": func(o *universe.Options, stateCh chan universe.Status, log *zap.Logger) (universe.Universe, error) {
			return universe.NewBaseUniverse(o, stateCh, log)
		},
		"inline":        universe.NewInlineUniverse,
		"multithreaded": universe.NewMultithreadedUniverse,
	}
)

//EnvOptions holds the command line, negative numbers and empty strings mean "not given"
type EnvOptions struct {
	interactive      bool
	configPath       string
	engine           string
	width            int
	height           int
	interval         time.Duration
	maxSteps         int
	virtualTime      time.Duration
	grassProbability float64
	seed             int64
	outputDir        string
	logLevel         string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	eo := initOptions()

	cfg, err := config.Load(eo.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eo.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	out, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error("close telemetry", zap.Error(err))
		}
	}()

	var stateCh chan universe.Status
	ulog := log
	if eo.interactive {
		//the terminal belongs to the UI
		ulog = zap.NewNop()
	} else {
		stateCh = make(chan universe.Status, universe.DefStatusChannelBacklog) //the buffered channel to getting the universe status
	}

	u, err := engines[cfg.Scheduler.Engine](universeOptions(cfg), stateCh, ulog)
	if err != nil {
		return fmt.Errorf("create universe: %w", err)
	}
	defer u.Close()

	collector := telemetry.NewCollector(out, ulog)
	u.RegisterViewer(collector)

	if err := u.Settle(cfg.World.GrassProbability); err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	if eo.interactive {
		v, err := view.NewViewTerminal(cfg.World.GrassProbability, ulog)
		if err != nil {
			return err
		}
		u.RegisterViewer(v)
		v.Start()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := view.NewConsoleOut(log)
	u.RegisterViewer(v)
	v.Start()
	u.Run()
wait:
	for {
		select {
		case st := <-stateCh:
			if st.RunningMode == universe.RunningStateFinished {
				break wait
			}
		case <-ctx.Done():
			log.Info("interrupted, stopping")
			u.Stop()
			break wait
		}
	}
	//keep the main loop unblocked until Close
	go func() {
		for range stateCh {
		}
	}()
	totals := collector.Totals()
	log.Info("run totals",
		zap.Int("ticks", totals.Tick),
		zap.Int("births", totals.Births),
		zap.Int("captures", totals.Captures),
		zap.Int("starvations", totals.Starvations),
		zap.Int("grazes", totals.Grazes),
		zap.Int("regrowths", totals.Regrowths+totals.Swept),
		zap.String("telemetry", out.Dir()),
	)
	return nil
}

func initOptions() *EnvOptions {
	eo := &EnvOptions{
		width:            -1,
		height:           -1,
		interval:         -1,
		maxSteps:         -1,
		virtualTime:      -1,
		grassProbability: -1,
	}
	flaggy.SetName("islandsim")
	flaggy.SetDescription("Island ecosystem simulation")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.String(&eo.configPath, "c", "config", "Path to the TOML configuration file")
	flaggy.Int(&eo.width, "x", "width", "Width of the island")
	flaggy.Int(&eo.height, "y", "height", "Height of the island")
	flaggy.Duration(&eo.interval, "i", "interval", "Simulation speed (interval between the steps) in format the number with 'ms' suffix, for example 150ms")
	flaggy.Int(&eo.maxSteps, "s", "maxSteps", "Limit the simulation to maxSteps")
	flaggy.Duration(&eo.virtualTime, "t", "virtualTime", "Advance a virtual clock by this amount per step instead of using the wall clock")
	flaggy.Float64(&eo.grassProbability, "g", "grass", "Initial grass probability per cell")
	flaggy.Int64(&eo.seed, "d", "seed", "Random seed, 0 is time-based")
	flaggy.String(&eo.outputDir, "o", "output", "Directory for the CSV telemetry")
	flaggy.String(&eo.logLevel, "l", "logLevel", "Log level [debug|info|warn|error]")
	flaggy.Bool(&eo.interactive, "n", "interactive", "Start interactive mode")
	flaggy.String(&eo.engine, "e", "engine", "Engine to use ["+strings.Join(config.Engines, "|")+"]")

	flaggy.Parse()

	if eo.engine != "" {
		if _, ok := engines[eo.engine]; !ok {
			flaggy.ShowHelpAndExit("unknown engine")
		}
	}
	return eo
}

//apply overrides the configuration with the given flags
func (eo *EnvOptions) apply(cfg *config.Config) {
	if eo.engine != "" {
		cfg.Scheduler.Engine = eo.engine
	}
	if eo.width >= 0 {
		cfg.World.Width = eo.width
	}
	if eo.height >= 0 {
		cfg.World.Height = eo.height
	}
	if eo.interval >= 0 {
		cfg.Scheduler.Interval = eo.interval
	}
	if eo.maxSteps >= 0 {
		cfg.Scheduler.MaxSteps = eo.maxSteps
	}
	if eo.virtualTime >= 0 {
		cfg.Scheduler.VirtualTime = eo.virtualTime
	}
	if eo.grassProbability >= 0 {
		cfg.World.GrassProbability = eo.grassProbability
	}
	if eo.seed != 0 {
		cfg.World.Seed = eo.seed
	}
	if eo.outputDir != "" {
		cfg.Telemetry.OutputDir = eo.outputDir
	}
	if eo.logLevel != "" {
		cfg.Logging.Level = eo.logLevel
	}
}

func universeOptions(cfg *config.Config) *universe.Options {
	return &universe.Options{
		Width:               cfg.World.Width,
		Height:              cfg.World.Height,
		Interval:            cfg.Scheduler.Interval,
		MaxSteps:            cfg.Scheduler.MaxSteps,
		MaxSkippedTicks:     cfg.Scheduler.MaxSkippedTicks,
		GrassProbability:    cfg.World.GrassProbability,
		RegrowthProbability: cfg.Scheduler.RegrowthProbability,
		Seed:                cfg.World.Seed,
		VirtualTime:         cfg.Scheduler.VirtualTime,
		Workers:             cfg.Scheduler.Workers,
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
