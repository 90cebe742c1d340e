package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Root configuration. Mirrors config/config.yaml.
type Root struct {
	PiJuice PiJuice `yaml:"pijuice"`
	Engine  Engine  `yaml:"engine"`
	Archive Archive `yaml:"archive"`
	Logging Logging `yaml:"logging"`
}

// PiJuice is the service's own config section.
type PiJuice struct {
	Bus                int               `yaml:"bus"`
	Address            string            `yaml:"address"`         // decimal or 0x-prefixed hex
	UpdateInterval     int64             `yaml:"update_interval"` // seconds
	FieldMap           map[string]string `yaml:"field_map"`
	FieldMapExtensions map[string]string `yaml:"field_map_extensions"`
	DataBinding        string            `yaml:"data_binding"`
}

type Engine struct {
	LoopInterval    Duration `yaml:"loop_interval"`
	ArchiveInterval Duration `yaml:"archive_interval"`
	UnitSystem      int      `yaml:"unit_system"`
}

// Duration decodes yaml strings like "10s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Archive struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// DeviceAddress parses the configured I2C address. A malformed value is fatal
// for this component only; the host disables the service and continues.
func (p PiJuice) DeviceAddress() (uint16, error) {
	v, err := strconv.ParseUint(p.Address, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device address %q: %w", p.Address, err)
	}
	return uint16(v), nil
}

// Default returns a configuration with every default filled in, for tools
// that run without a config file.
func Default() Root {
	var cfg Root
	applyDefaults(&cfg)
	return cfg
}

// LoadYAML reads and validates the configuration, filling defaults.
func LoadYAML(path string) (Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Root{}, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Root{}, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if _, err := cfg.PiJuice.DeviceAddress(); err != nil {
		return Root{}, err
	}
	if err := ValidateLogging(&cfg.Logging); err != nil {
		return Root{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Root) {
	if cfg.PiJuice.Bus <= 0 {
		cfg.PiJuice.Bus = 1
	}
	if cfg.PiJuice.Address == "" {
		cfg.PiJuice.Address = "0x14"
	}
	if cfg.PiJuice.UpdateInterval <= 0 {
		cfg.PiJuice.UpdateInterval = 20
	}
	if cfg.PiJuice.DataBinding == "" {
		cfg.PiJuice.DataBinding = "ups_binding"
	}
	if cfg.Engine.LoopInterval <= 0 {
		cfg.Engine.LoopInterval = Duration(10 * time.Second)
	}
	if cfg.Engine.ArchiveInterval <= 0 {
		cfg.Engine.ArchiveInterval = Duration(5 * time.Minute)
	}
	if cfg.Engine.UnitSystem <= 0 {
		cfg.Engine.UnitSystem = 16
	}
	if cfg.Archive.DBPath == "" {
		cfg.Archive.DBPath = "data/ups.sqlite"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
