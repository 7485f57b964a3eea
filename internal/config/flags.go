package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command line overrides
type Flags struct {
	set *pflag.FlagSet

	ConfigPath string
	LogLevel   string
	DebugView  bool
	Window     string
	Symbol     string
	Input      string
}

// RegisterFlags defines the override flags on fs
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "config file (.ini, .yaml, .toml or .json)")
	fs.StringVar(&f.LogLevel, "log-level", "", "DEBUG, INFO, WARNING, ERROR or CRITICAL")
	fs.BoolVar(&f.DebugView, "debug-view", false, "show the last analyzed frame in a window")
	fs.StringVar(&f.Window, "window", "", "target window title")
	fs.StringVar(&f.Symbol, "symbol", "", "template symbol to click")
	fs.StringVar(&f.Input, "input", "", "input backend (robotgo or serial)")
	return f
}

// Apply copies every flag that was set explicitly onto config
func (f *Flags) Apply(config *Config) {
	if f.set.Changed("log-level") {
		config.Logging.Level = f.LogLevel
	}
	if f.set.Changed("debug-view") {
		config.DebugView = f.DebugView
	}
	if f.set.Changed("window") {
		config.Window = f.Window
	}
	if f.set.Changed("symbol") {
		config.Symbol = f.Symbol
	}
	if f.set.Changed("input") {
		config.Input.Backend = f.Input
	}
}
