// Package config loads tower-pilot settings from INI, YAML, TOML or JSON files,
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"jordanella.com/tower-pilot/internal/input"
	"jordanella.com/tower-pilot/internal/logging"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	InputRobotgo = "robotgo"
	InputSerial  = "serial"
)

// Config holds all runtime settings
type Config struct {
	// Target
	Window          string  `mapstructure:"window"`
	Symbol          string  `mapstructure:"symbol"`
	TemplateDir     string  `mapstructure:"template_dir"`
	ReferenceHeight int     `mapstructure:"reference_height"` // Client height the templates were captured at
	Threshold       float64 `mapstructure:"threshold"`

	// Loop
	Interval time.Duration `mapstructure:"interval"`
	QuitKey  string        `mapstructure:"quit_key"`

	Input   InputConfig   `mapstructure:"input"`
	Logging LoggingConfig `mapstructure:"logging"`
	Journal JournalConfig `mapstructure:"journal"`

	DebugView bool `mapstructure:"debug_view"`
}

// InputConfig selects and configures the input injector
type InputConfig struct {
	Backend    string `mapstructure:"backend"` // "robotgo" or "serial"
	Button     string `mapstructure:"button"`
	Scroll     int    `mapstructure:"scroll"` // Wheel units, 120 per notch; 0 disables scrolling
	SerialPort string `mapstructure:"serial_port"`
	BaudRate   int    `mapstructure:"baud_rate"`
}

// LoggingConfig controls console and file logging
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	File     string `mapstructure:"file"`
	EventDir string `mapstructure:"event_dir"` // Mirror bus events to a log file here when set
	NoColor  bool   `mapstructure:"no_color"`
}

// DefaultJournalPath is where the SQLite journal lives unless configured otherwise
const DefaultJournalPath = "data/journal.db"

// JournalConfig enables the cycle journal when Driver is set
type JournalConfig struct {
	Driver string `mapstructure:"driver"` // "", "sqlite3" or "mysql"
	DSN    string `mapstructure:"dsn"`
}

// Default returns the settings tuned for Infinitode 2's main menu
func Default() *Config {
	return &Config{
		Window:          "Infinitode 2",
		Symbol:          "newgame",
		TemplateDir:     "templates",
		ReferenceHeight: 1034,
		Threshold:       0.7,
		Interval:        5 * time.Second,
		QuitKey:         "q",
		Input: InputConfig{
			Backend:  InputRobotgo,
			Button:   string(input.ButtonLeft),
			Scroll:   input.DefaultScrollAmount,
			BaudRate: 9600,
		},
		Logging: LoggingConfig{
			Level: string(logging.LogLevelInfo),
		},
		Journal: JournalConfig{
			DSN: DefaultJournalPath,
		},
	}
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Window != "", "window title is required")
	check(c.Symbol != "", "symbol is required")
	check(c.ReferenceHeight > 0, "reference_height must be positive, got %d", c.ReferenceHeight)
	check(c.Threshold > 0 && c.Threshold <= 1, "threshold must be in (0, 1], got %v", c.Threshold)
	check(c.Interval > 0, "interval must be positive, got %s", c.Interval)
	check(utf8.RuneCountInString(c.QuitKey) == 1, "quit_key must be a single character, got %q", c.QuitKey)

	switch c.Input.Backend {
	case InputRobotgo:
	case InputSerial:
		check(c.Input.SerialPort != "", "input.serial_port is required for the serial backend")
		check(c.Input.BaudRate > 0, "input.baud_rate must be positive, got %d", c.Input.BaudRate)
	default:
		errs = append(errs, fmt.Errorf("unknown input backend %q", c.Input.Backend))
	}
	if _, err := input.ParseButton(c.Input.Button); err != nil {
		errs = append(errs, err)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	switch c.Journal.Driver {
	case "":
	case "sqlite3", "mysql":
		check(c.Journal.DSN != "", "journal.dsn is required when journal.driver is set")
	default:
		errs = append(errs, fmt.Errorf("unknown journal driver %q", c.Journal.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
