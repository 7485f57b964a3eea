package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// EnvPrefix is the prefix for environment overrides, e.g. TOWERPILOT_INPUT_BACKEND
const EnvPrefix = "TOWERPILOT"

// Load reads a config file, choosing the format by extension. An empty path
// yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return LoadFromINI(path)
	}
	return loadWithViper(path)
}

// LoadFromINI loads configuration from a Settings.ini style file
func LoadFromINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	def := Default()
	config := &Config{}

	section := file.Section("Settings")
	config.Window = section.Key("window").MustString(def.Window)
	config.Symbol = section.Key("symbol").MustString(def.Symbol)
	config.TemplateDir = section.Key("templateDir").MustString(def.TemplateDir)
	config.ReferenceHeight = section.Key("referenceHeight").MustInt(def.ReferenceHeight)
	config.Threshold = section.Key("threshold").MustFloat64(def.Threshold)
	config.Interval = time.Duration(section.Key("intervalMs").MustInt64(def.Interval.Milliseconds())) * time.Millisecond
	config.QuitKey = section.Key("quitKey").MustString(def.QuitKey)
	config.DebugView = section.Key("debugView").MustBool(false)

	section = file.Section("Input")
	config.Input.Backend = section.Key("backend").MustString(def.Input.Backend)
	config.Input.Button = section.Key("button").MustString(def.Input.Button)
	config.Input.Scroll = section.Key("scroll").MustInt(def.Input.Scroll)
	config.Input.SerialPort = section.Key("serialPort").String()
	config.Input.BaudRate = section.Key("baudRate").MustInt(def.Input.BaudRate)

	section = file.Section("Logging")
	config.Logging.Level = section.Key("level").MustString(def.Logging.Level)
	config.Logging.File = section.Key("file").String()
	config.Logging.EventDir = section.Key("eventDir").String()
	config.Logging.NoColor = section.Key("noColor").MustBool(false)

	section = file.Section("Journal")
	config.Journal.Driver = section.Key("driver").String()
	config.Journal.DSN = section.Key("dsn").MustString(def.Journal.DSN)

	return config, nil
}

func loadWithViper(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("window", def.Window)
	v.SetDefault("symbol", def.Symbol)
	v.SetDefault("template_dir", def.TemplateDir)
	v.SetDefault("reference_height", def.ReferenceHeight)
	v.SetDefault("threshold", def.Threshold)
	v.SetDefault("interval", def.Interval)
	v.SetDefault("quit_key", def.QuitKey)
	v.SetDefault("debug_view", def.DebugView)

	v.SetDefault("input.backend", def.Input.Backend)
	v.SetDefault("input.button", def.Input.Button)
	v.SetDefault("input.scroll", def.Input.Scroll)
	v.SetDefault("input.serial_port", def.Input.SerialPort)
	v.SetDefault("input.baud_rate", def.Input.BaudRate)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.event_dir", def.Logging.EventDir)
	v.SetDefault("logging.no_color", def.Logging.NoColor)

	v.SetDefault("journal.driver", def.Journal.Driver)
	v.SetDefault("journal.dsn", def.Journal.DSN)
}
