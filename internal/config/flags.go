package config

import "flag"

// PrimaryDisplay is the -display value that selects the primary display.
const PrimaryDisplay = -1

// Flags holds the command-line overrides bound to a FlagSet.
type Flags struct {
	ConfigPath  *string
	brightness  *float64
	intensity   *float64
	fps         *int
	display     *int
	source      *string
	driver      *string
	midiPort    *string
	spiDev      *string
	orientation *string
	selfTest    *string
	previewAddr *string
	logLevel    *string
}

func BindFlags(fs *flag.FlagSet, def Config) *Flags {
	return &Flags{
		ConfigPath:  fs.String("config", "", "optional path to config.yaml"),
		brightness:  fs.Float64("brightness", def.Brightness, "output brightness 0..1"),
		intensity:   fs.Float64("intensity", def.Intensity, "input intensity multiplier 0..1"),
		fps:         fs.Int("fps", def.FPS, "capture frames per second"),
		display:     fs.Int("display", PrimaryDisplay, "display index (-1 for primary)"),
		source:      fs.String("source", def.Source, "frame source: screen | synthetic"),
		driver:      fs.String("driver", def.Driver, "driver: launchpad | spi | sim"),
		midiPort:    fs.String("midi-port", def.MIDI.Port, "MIDI output port name (substring match)"),
		spiDev:      fs.String("spi-dev", def.SPI.Dev, "SPI device for the LED matrix (empty for first port)"),
		orientation: fs.String("orientation", def.Orientation, "identity | rotate180 | mirror-x | mirror-y"),
		selfTest:    fs.String("selftest", def.SelfTest, "startup pattern: flash | rgb_channels | index_sweep | none"),
		previewAddr: fs.String("preview-addr", "", "serve a read-only browser preview on this address"),
		logLevel:    fs.String("log-level", def.LogLevel, "trace | debug | info | warn | error"),
	}
}

// Apply copies the flags set on the command line over cfg. Flags left at
// their defaults do not touch values loaded from the config file.
func (f *Flags) Apply(fs *flag.FlagSet, cfg Config) Config {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "brightness":
			cfg.Brightness = *f.brightness
		case "intensity":
			cfg.Intensity = *f.intensity
		case "fps":
			cfg.FPS = *f.fps
		case "display":
			// any other negative index is kept so validation rejects it
			if *f.display == PrimaryDisplay {
				cfg.Display = nil
			} else {
				d := *f.display
				cfg.Display = &d
			}
		case "source":
			cfg.Source = *f.source
		case "driver":
			cfg.Driver = *f.driver
		case "midi-port":
			cfg.MIDI.Port = *f.midiPort
		case "spi-dev":
			cfg.SPI.Dev = *f.spiDev
		case "orientation":
			cfg.Orientation = *f.orientation
		case "selftest":
			cfg.SelfTest = *f.selfTest
			if cfg.SelfTest == "none" {
				cfg.SelfTest = ""
			}
		case "preview-addr":
			cfg.PreviewAddr = *f.previewAddr
		case "log-level":
			cfg.LogLevel = *f.logLevel
		}
	})
	return cfg
}
