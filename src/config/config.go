package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type WorldConfig struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	GrassProbability float64 `toml:"grass_probability"` // initial Bernoulli grass seeding (0.0-1.0)
	Seed             int64   `toml:"seed"`              // 0 = time-based
}

type SchedulerConfig struct {
	Engine              string        `toml:"engine"` // base, inline or multithreaded
	Interval            time.Duration `toml:"interval"`
	MaxSteps            int           `toml:"max_steps"` // 0 = unlimited
	MaxSkippedTicks     int           `toml:"max_skipped_ticks"`
	RegrowthProbability float64       `toml:"regrowth_probability"` // ambient sweep per bare cell
	VirtualTime         time.Duration `toml:"virtual_time"`         // clock advance per tick, 0 = wall clock
	Workers             int           `toml:"workers"`              // multithreaded engine only
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type TelemetryConfig struct {
	OutputDir string `toml:"output_dir"` // empty = disabled
}

//Engines lists the known scheduler engines
var Engines = []string{"base", "inline", "multithreaded"}

//Load reads the TOML file at path on top of the defaults, empty path returns the defaults
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		World: WorldConfig{
			Width:            20,
			Height:           10,
			GrassProbability: 0.5,
		},
		Scheduler: SchedulerConfig{
			Engine:              "base",
			Interval:            10 * time.Second,
			MaxSkippedTicks:     5,
			RegrowthProbability: 0.1,
			Workers:             4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

//Validate checks the values the engine can't run with
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world: dimensions must be positive, got %dx%d", c.World.Width, c.World.Height))
	}
	if c.World.GrassProbability < 0 || c.World.GrassProbability > 1 {
		errs = append(errs, fmt.Errorf("world: grass_probability %v outside [0, 1]", c.World.GrassProbability))
	}
	if c.Scheduler.RegrowthProbability < 0 || c.Scheduler.RegrowthProbability > 1 {
		errs = append(errs, fmt.Errorf("scheduler: regrowth_probability %v outside [0, 1]", c.Scheduler.RegrowthProbability))
	}
	if c.Scheduler.Interval < 0 || c.Scheduler.VirtualTime < 0 {
		errs = append(errs, errors.New("scheduler: durations must not be negative"))
	}
	if c.Scheduler.MaxSteps < 0 || c.Scheduler.MaxSkippedTicks < 0 {
		errs = append(errs, errors.New("scheduler: step limits must not be negative"))
	}
	known := false
	for _, e := range Engines {
		if e == c.Scheduler.Engine {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("scheduler: unknown engine %q", c.Scheduler.Engine))
	}
	return errors.Join(errs...)
}
