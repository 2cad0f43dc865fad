// Package config provides the Config struct and loader for .visitdesk.yaml
// project-level configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for configuration. These are the single source of truth —
// New() references them and no other code should duplicate them.
const (
	DefaultTimezone = "Asia/Tokyo"

	DefaultLatestEndTime         = "20:00"
	DefaultSlideLimitUnspecified = 3
	DefaultSlotMinutes           = 30

	DefaultDebounceMS = 400

	DefaultJournalDir = ".visitdesk/journal"

	// TokenEnvVar overrides the identity token from the environment so it
	// never has to live in the config file.
	TokenEnvVar = "VISITDESK_TOKEN"

	configFileName = ".visitdesk.yaml"
)

// EndpointsConfig holds the two backend URLs.
type EndpointsConfig struct {
	Gateway     string `yaml:"gateway,omitempty"`
	Interpreter string `yaml:"interpreter,omitempty"`
}

// StaffConfig carries the caller's staff identity. Admins may leave ID and
// Name blank and set Admin true to defer staff assignment to the backend.
type StaffConfig struct {
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Admin bool   `yaml:"admin,omitempty"`
}

// ConstraintsConfig holds the interpreter scheduling constraints.
type ConstraintsConfig struct {
	LatestEndTime         string `yaml:"latest_end_time,omitempty"`
	SlideLimitUnspecified int    `yaml:"slide_limit_unspecified,omitempty"`
	SlotMinutes           int    `yaml:"slot_minutes,omitempty"`
}

// Config is the top-level configuration loaded from .visitdesk.yaml.
type Config struct {
	Endpoints   EndpointsConfig   `yaml:"endpoints,omitempty"`
	Token       string            `yaml:"token,omitempty"`
	Timezone    string            `yaml:"timezone,omitempty"`
	Staff       StaffConfig       `yaml:"staff,omitempty"`
	Constraints ConstraintsConfig `yaml:"constraints,omitempty"`
	DebounceMS  int               `yaml:"debounce_ms,omitempty"`
	JournalDir  string            `yaml:"journal_dir,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Timezone: DefaultTimezone,
		Constraints: ConstraintsConfig{
			LatestEndTime:         DefaultLatestEndTime,
			SlideLimitUnspecified: DefaultSlideLimitUnspecified,
			SlotMinutes:           DefaultSlotMinutes,
		},
		DebounceMS: DefaultDebounceMS,
		JournalDir: DefaultJournalDir,
	}
}

// Load finds .visitdesk.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. A missing file
// yields defaults with a nil error; real I/O errors are returned. The
// VISITDESK_TOKEN environment variable always wins over the file token.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", configFileName, err)
		}
	} else {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configFileName, err)
		}
		merge(cfg, &fileCfg)
	}

	if tok := os.Getenv(TokenEnvVar); tok != "" {
		cfg.Token = tok
	}
	return cfg, nil
}

// Validate checks the fields every remote command needs. Kept separate from
// Load so commands that stay local (e.g. help output) work unconfigured.
func (c *Config) Validate() error {
	if c.Endpoints.Gateway == "" {
		return fmt.Errorf("endpoints.gateway is not configured")
	}
	if c.Endpoints.Interpreter == "" {
		return fmt.Errorf("endpoints.interpreter is not configured")
	}
	if c.Token == "" {
		return fmt.Errorf("no identity token: set token in %s or %s", configFileName, TokenEnvVar)
	}
	return nil
}

func merge(dst, src *Config) {
	if src.Endpoints.Gateway != "" {
		dst.Endpoints.Gateway = src.Endpoints.Gateway
	}
	if src.Endpoints.Interpreter != "" {
		dst.Endpoints.Interpreter = src.Endpoints.Interpreter
	}
	if src.Token != "" {
		dst.Token = src.Token
	}
	if src.Timezone != "" {
		dst.Timezone = src.Timezone
	}
	if src.Staff.ID != "" {
		dst.Staff.ID = src.Staff.ID
	}
	if src.Staff.Name != "" {
		dst.Staff.Name = src.Staff.Name
	}
	if src.Staff.Admin {
		dst.Staff.Admin = true
	}
	if src.Constraints.LatestEndTime != "" {
		dst.Constraints.LatestEndTime = src.Constraints.LatestEndTime
	}
	if src.Constraints.SlideLimitUnspecified != 0 {
		dst.Constraints.SlideLimitUnspecified = src.Constraints.SlideLimitUnspecified
	}
	if src.Constraints.SlotMinutes != 0 {
		dst.Constraints.SlotMinutes = src.Constraints.SlotMinutes
	}
	if src.DebounceMS != 0 {
		dst.DebounceMS = src.DebounceMS
	}
	if src.JournalDir != "" {
		dst.JournalDir = src.JournalDir
	}
}

// findConfigFile walks up from dir looking for .visitdesk.yaml (max 10
// levels). Returns os.ErrNotExist when no config file exists; real I/O
// errors are propagated.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, configFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}
