package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"planner/internal/schedule"
	"planner/internal/store"
)

// ExportConfig controls the periodic ICS export job.
type ExportConfig struct {
	// Cron is a standard 5-field cron schedule (e.g. "*/15 * * * *").
	Cron string `yaml:"cron" json:"cron"`
	// Path is where calendar.ics is written. Empty disables the job.
	Path string `yaml:"path" json:"path"`
	// WeeksBack sets how far before today exported recurrences start.
	WeeksBack int `yaml:"weeks_back" json:"weeks_back"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the local API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds the JSON documents. Relative file names below are
	// resolved against it.
	DataDir       string `yaml:"data_dir" json:"data_dir"`
	TimetableFile string `yaml:"timetable_file" json:"timetable_file"`
	OverridesFile string `yaml:"overrides_file" json:"overrides_file"`
	// TasksFile is owned by the to-do store; the planner only reads it.
	TasksFile string `yaml:"tasks_file" json:"tasks_file"`

	// HorizonDays is the default window of the upcoming view.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Export ExportConfig `yaml:"export" json:"export"`

	// BasicAuth, if set with both fields, guards every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultHorizonDays = 7
	defaultExportCron  = "*/15 * * * *"
	defaultWeeksBack   = 4
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		DataDir:       DefaultDataDir(),
		TimetableFile: "timetable.json",
		OverridesFile: "timetable_overrides.json",
		TasksFile:     "tasks.json",
		HorizonDays:   defaultHorizonDays,
		LogLevel:      "info",
		Export: ExportConfig{
			Cron:      defaultExportCron,
			WeeksBack: defaultWeeksBack,
		},
	}
}

// DefaultPath is the config file location: $XDG_CONFIG_HOME/planner or
// ~/.config/planner.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "planner", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "planner.yaml"
	}
	return filepath.Join(home, ".config", "planner", "config.yaml")
}

// DefaultDataDir uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "planner")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "planner-data"
	}
	return filepath.Join(home, ".local", "share", "planner")
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.TimetableFile == "" {
		c.TimetableFile = "timetable.json"
	}
	if c.OverridesFile == "" {
		c.OverridesFile = "timetable_overrides.json"
	}
	if c.TasksFile == "" {
		c.TasksFile = "tasks.json"
	}
	if c.HorizonDays <= 0 || c.HorizonDays > schedule.MaxHorizonDays {
		c.HorizonDays = defaultHorizonDays
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if _, err := cron.ParseStandard(c.Export.Cron); err != nil {
		// Unparseable schedule; fall back rather than refuse to start.
		c.Export.Cron = defaultExportCron
	}
	if c.Export.WeeksBack < 0 {
		c.Export.WeeksBack = 0
	}
}

// TimetablePath returns the absolute-or-DataDir-relative timetable path.
func (c *Config) TimetablePath() string { return c.resolve(c.TimetableFile) }

func (c *Config) OverridesPath() string { return c.resolve(c.OverridesFile) }

func (c *Config) TasksPath() string { return c.resolve(c.TasksFile) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return store.WriteFile(path, data)
}
