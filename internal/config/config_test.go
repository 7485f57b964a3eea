package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Window != "Infinitode 2" || cfg.ReferenceHeight != 1034 || cfg.Interval != 5*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Input.Scroll != -1600 {
		t.Errorf("scroll = %d", cfg.Input.Scroll)
	}
}

func TestShippedSettingsMatchDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "Settings.ini"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Settings.ini drifted from Default():\n got %+v\nwant %+v", cfg, Default())
	}
	if cfg.Journal.DSN != DefaultJournalPath {
		t.Errorf("journal dsn = %q, want %q", cfg.Journal.DSN, DefaultJournalPath)
	}
}

func TestLoadFromINI(t *testing.T) {
	path := writeFile(t, "Settings.ini", `
[Settings]
window = My Game
referenceHeight = 720
intervalMs = 250

[Input]
backend = serial
serialPort = COM3
scroll = 0

[Journal]
driver = sqlite3
dsn = runs.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Window != "My Game" || cfg.ReferenceHeight != 720 {
		t.Errorf("settings not read: %+v", cfg)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Errorf("interval = %s", cfg.Interval)
	}
	if cfg.Symbol != "newgame" || cfg.Threshold != 0.7 || cfg.QuitKey != "q" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Input.Backend != InputSerial || cfg.Input.SerialPort != "COM3" || cfg.Input.Scroll != 0 || cfg.Input.BaudRate != 9600 {
		t.Errorf("input = %+v", cfg.Input)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
symbol: wave
interval: 2s
input:
  button: right
logging:
  level: DEBUG
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Symbol != "wave" || cfg.Interval != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Input.Button != "right" || cfg.Input.Backend != InputRobotgo || cfg.Input.Scroll != -1600 {
		t.Errorf("input = %+v", cfg.Input)
	}
	if cfg.Window != "Infinitode 2" {
		t.Errorf("default window lost: %q", cfg.Window)
	}
}

func TestLoadTOMLWithEnvOverride(t *testing.T) {
	t.Setenv("TOWERPILOT_WINDOW", "From Env")
	t.Setenv("TOWERPILOT_INPUT_SCROLL", "-800")

	path := writeFile(t, "config.toml", `
window = "From File"
threshold = 0.8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window != "From Env" {
		t.Errorf("env should win over file, got %q", cfg.Window)
	}
	if cfg.Threshold != 0.8 || cfg.Input.Scroll != -800 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Symbol != "newgame" {
		t.Errorf("symbol = %q", cfg.Symbol)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.ini")); err == nil {
		t.Error("expected error for missing ini file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty window", func(c *Config) { c.Window = "" }, "window title"},
		{"zero reference", func(c *Config) { c.ReferenceHeight = 0 }, "reference_height"},
		{"threshold too high", func(c *Config) { c.Threshold = 1.5 }, "threshold"},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, "interval"},
		{"long quit key", func(c *Config) { c.QuitKey = "qq" }, "quit_key"},
		{"serial without port", func(c *Config) { c.Input.Backend = InputSerial }, "serial_port"},
		{"unknown backend", func(c *Config) { c.Input.Backend = "xdotool" }, "input backend"},
		{"unknown button", func(c *Config) { c.Input.Button = "thumb" }, "mouse button"},
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }, "LOUD"},
		{"journal without dsn", func(c *Config) { c.Journal.Driver = "mysql"; c.Journal.DSN = "" }, "journal.dsn"},
		{"unknown journal", func(c *Config) { c.Journal.Driver = "postgres"; c.Journal.DSN = "x" }, "journal driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"--log-level", "DEBUG", "--debug-view", "-c", "x.yaml"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	flags.Apply(cfg)

	if cfg.Logging.Level != "DEBUG" || !cfg.DebugView {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Window != "Infinitode 2" {
		t.Errorf("unset flag overwrote window: %q", cfg.Window)
	}
	if flags.ConfigPath != "x.yaml" {
		t.Errorf("config path = %q", flags.ConfigPath)
	}
}
