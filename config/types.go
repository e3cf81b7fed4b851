package config

import (
	"fmt"
	"time"

	"github.com/grovetools/nudge/pkg/paths"
	"github.com/mitchellh/mapstructure"
)

//go:generate go run ../tools/schema-generator/

// Default values applied by SetDefaults.
const (
	DefaultVersion         = "1.0"
	DefaultIdleThreshold   = 12 * time.Second
	DefaultAcceptCooldown  = 30 * time.Second
	DefaultDismissCooldown = 90 * time.Second
	DefaultTickInterval    = time.Second
	DefaultHistoryCapacity = 100
	DefaultSmoothing       = 0.1
	DefaultContext         = "default"
)

// TriggerConfig controls when the engine arms itself and how long it backs off.
type TriggerConfig struct {
	IdleThreshold   time.Duration `yaml:"idle_threshold,omitempty" toml:"idle_threshold,omitempty" json:"idle_threshold" jsonschema:"description=Inactivity before the engine arms (e.g. 12s)"`
	AcceptCooldown  time.Duration `yaml:"accept_cooldown,omitempty" toml:"accept_cooldown,omitempty" json:"accept_cooldown" jsonschema:"description=Backoff used for system cooldowns (e.g. 30s)"`
	DismissCooldown time.Duration `yaml:"dismiss_cooldown,omitempty" toml:"dismiss_cooldown,omitempty" json:"dismiss_cooldown" jsonschema:"description=Backoff after the user dismisses a suggestion; must not be shorter than accept_cooldown"`
	TickInterval    time.Duration `yaml:"tick_interval,omitempty" toml:"tick_interval,omitempty" json:"tick_interval" jsonschema:"description=How often the background evaluator re-checks idle and cooldown state"`
	HistoryCapacity int           `yaml:"history_capacity,omitempty" toml:"history_capacity,omitempty" json:"history_capacity" jsonschema:"minimum=1,description=Number of transitions kept in the in-memory log"`
}

// TrustConfig controls the per-context trust ledger.
type TrustConfig struct {
	Smoothing      *float64 `yaml:"smoothing,omitempty" toml:"smoothing,omitempty" json:"smoothing" jsonschema:"exclusiveMinimum=0,maximum=1,description=EMA smoothing factor applied to each outcome"`
	Initial        float64  `yaml:"initial" toml:"initial" json:"initial" jsonschema:"minimum=0,maximum=1,description=Score assigned to a context the first time it is seen"`
	DefaultContext string   `yaml:"default_context,omitempty" toml:"default_context,omitempty" json:"default_context" jsonschema:"description=Context key used when an opportunity names none"`
}

// DaemonConfig locates the daemon's socket and PID file.
type DaemonConfig struct {
	Socket  string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket" jsonschema:"description=Unix socket the daemon listens on"`
	PidFile string `yaml:"pid_file,omitempty" toml:"pid_file,omitempty" json:"pid_file" jsonschema:"description=PID file written by the daemon"`
}

// Config represents a nudge.yml configuration.
type Config struct {
	Version string        `yaml:"version" toml:"version" json:"version" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Trigger TriggerConfig `yaml:"trigger" toml:"trigger" json:"trigger" jsonschema:"description=Idle threshold and cooldown timing"`
	Trust   TrustConfig   `yaml:"trust" toml:"trust" json:"trust" jsonschema:"description=Trust ledger settings"`
	Daemon  DaemonConfig  `yaml:"daemon" toml:"daemon" json:"daemon" jsonschema:"description=Daemon socket and PID file"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`

	// Sources lists the files that were merged into this config, lowest precedence first.
	Sources []string `yaml:"-" toml:"-" json:"sources,omitempty" jsonschema:"-"`
}

// knownKeys are the top-level keys decoded into typed sections. Everything
// else ends up in Extensions.
var knownKeys = map[string]bool{
	"version": true,
	"trigger": true,
	"trust":   true,
	"daemon":  true,
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}

	if c.Trigger.IdleThreshold == 0 {
		c.Trigger.IdleThreshold = DefaultIdleThreshold
	}
	if c.Trigger.AcceptCooldown == 0 {
		c.Trigger.AcceptCooldown = DefaultAcceptCooldown
	}
	if c.Trigger.DismissCooldown == 0 {
		c.Trigger.DismissCooldown = DefaultDismissCooldown
	}
	if c.Trigger.TickInterval == 0 {
		c.Trigger.TickInterval = DefaultTickInterval
	}
	if c.Trigger.HistoryCapacity == 0 {
		c.Trigger.HistoryCapacity = DefaultHistoryCapacity
	}

	if c.Trust.Smoothing == nil {
		s := DefaultSmoothing
		c.Trust.Smoothing = &s
	}
	if c.Trust.DefaultContext == "" {
		c.Trust.DefaultContext = DefaultContext
	}

	if c.Daemon.Socket == "" {
		c.Daemon.Socket = paths.SocketPath()
	}
	if c.Daemon.PidFile == "" {
		c.Daemon.PidFile = paths.PidFilePath()
	}
}

// SmoothingFactor returns the configured smoothing factor or the default.
func (c *Config) SmoothingFactor() float64 {
	if c.Trust.Smoothing == nil {
		return DefaultSmoothing
	}
	return *c.Trust.Smoothing
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded nudge.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration layer.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceGlobal   ConfigSource = "global"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
)

// Layer is one raw configuration document and where it came from.
type Layer struct {
	Source ConfigSource
	Path   string
	Raw    map[string]interface{}
}

// LayeredConfig holds every raw layer that was found together with the
// merged, validated result.
type LayeredConfig struct {
	Layers []Layer
	Final  *Config
}
