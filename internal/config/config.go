package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/backlight/internal/layout"
	"github.com/coreman2200/backlight/internal/led"
)

// Drivers and sources understood by the CLI.
const (
	DriverLaunchpad = "launchpad"
	DriverSPI       = "spi"
	DriverSim       = "sim"

	SourceScreen    = "screen"
	SourceSynthetic = "synthetic"
)

type SPI struct {
	Dev string `yaml:"dev"` // e.g. /dev/spidev0.0, empty for the first port
	// BottomUp starts the LED chain at the bottom row.
	BottomUp bool    `yaml:"bottom_up"`
	BudgetMA float64 `yaml:"budget_ma"`
	WhiteCap float64 `yaml:"white_cap"`
}

type MIDI struct {
	Port string `yaml:"port"` // substring of the output port name
}

type Tuning struct {
	Gamma     float64       `yaml:"gamma"`
	NormCurve float64       `yaml:"norm_curve"`
	Step      int           `yaml:"sample_step"`
	Backoff   time.Duration `yaml:"backoff"`
	Interval  time.Duration `yaml:"interval"`
}

// Config is read once at startup and not changed afterwards.
type Config struct {
	Brightness float64 `yaml:"brightness"`
	Intensity  float64 `yaml:"intensity"`
	FPS        int     `yaml:"fps"`
	// Display selects a screen by index; nil means the primary display.
	Display *int `yaml:"display,omitempty"`

	Source      string `yaml:"source"`
	Driver      string `yaml:"driver"`
	Orientation string `yaml:"orientation"`
	SelfTest    string `yaml:"self_test"`
	PreviewAddr string `yaml:"preview_addr"`
	LogLevel    string `yaml:"log_level"`

	Tuning Tuning `yaml:"tuning"`
	SPI    SPI    `yaml:"spi"`
	MIDI   MIDI   `yaml:"midi"`
}

func Default() Config {
	return Config{
		Brightness:  1,
		Intensity:   1,
		FPS:         60,
		Source:      SourceScreen,
		Driver:      DriverLaunchpad,
		Orientation: string(layout.DefaultOrientation),
		SelfTest:    string(led.Flash),
		LogLevel:    "info",
		Tuning: Tuning{
			Gamma:     1.5,
			NormCurve: 1,
			Step:      2,
			Backoff:   15 * time.Millisecond,
			Interval:  60 * time.Millisecond,
		},
		SPI: SPI{BudgetMA: 2000, WhiteCap: 0.85},
		MIDI: MIDI{Port: led.DefaultLaunchpadPort},
	}
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if err := unitRange("brightness", c.Brightness); err != nil {
		errs = append(errs, err)
	}
	if err := unitRange("intensity", c.Intensity); err != nil {
		errs = append(errs, err)
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps: must be a positive integer, got %d", c.FPS))
	}
	if c.Display != nil && *c.Display < 0 {
		errs = append(errs, fmt.Errorf("display: must be a non-negative index, got %d", *c.Display))
	}
	switch c.Source {
	case SourceScreen, SourceSynthetic:
	default:
		errs = append(errs, fmt.Errorf("source: unknown %q (want screen or synthetic)", c.Source))
	}
	switch c.Driver {
	case DriverLaunchpad, DriverSPI, DriverSim:
	default:
		errs = append(errs, fmt.Errorf("driver: unknown %q (want launchpad, spi or sim)", c.Driver))
	}
	if _, err := layout.ParseOrientation(c.Orientation); err != nil {
		errs = append(errs, fmt.Errorf("orientation: %w", err))
	}
	if _, err := led.ParseKind(c.SelfTest); err != nil {
		errs = append(errs, fmt.Errorf("self_test: %w", err))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	t := c.Tuning
	if t.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("tuning.gamma: must be positive, got %v", t.Gamma))
	}
	if t.NormCurve <= 0 {
		errs = append(errs, fmt.Errorf("tuning.norm_curve: must be positive, got %v", t.NormCurve))
	}
	if t.Step < 1 {
		errs = append(errs, fmt.Errorf("tuning.sample_step: must be at least 1, got %d", t.Step))
	}
	if t.Backoff <= 0 || t.Interval < 0 {
		errs = append(errs, fmt.Errorf("tuning: backoff must be positive and interval non-negative"))
	}
	if c.SPI.WhiteCap < 0 || c.SPI.WhiteCap > 1 {
		errs = append(errs, fmt.Errorf("spi.white_cap: must be in range [0, 1], got %v", c.SPI.WhiteCap))
	}
	return errors.Join(errs...)
}

func unitRange(name string, v float64) error {
	if v >= 0 && v <= 1 {
		return nil
	}
	return fmt.Errorf("%s: must be in range [0, 1], got %v", name, v)
}
