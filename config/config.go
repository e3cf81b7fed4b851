package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/nudge/errors"
	"github.com/grovetools/nudge/pkg/paths"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Project config file names, in lookup order.
var configNames = []string{
	"nudge.yml",
	"nudge.yaml",
	".nudge.yml",
	".nudge.yaml",
	"nudge.toml",
}

var overrideNames = []string{
	"nudge.override.yml",
	"nudge.override.yaml",
	".nudge.override.yml",
	".nudge.override.yaml",
}

// Load reads, validates and decodes a single configuration file.
func Load(path string) (*Config, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// LoadFromBytes parses YAML configuration from a byte array.
func LoadFromBytes(data []byte) (*Config, error) {
	raw, err := parseRaw(data, FormatYAML)
	if err != nil {
		return nil, err
	}
	return build(raw)
}

// LoadDefault loads the layered configuration for the current directory:
// 1. Global config (~/.config/nudge/nudge.yml) - base layer
// 2. Project config (nudge.yml) - overrides global
// 3. Local override (nudge.override.yml) - overrides all
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory.
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging and logging.
// Missing files are not an error; with no files at all the defaults are returned.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	layered, err := loadLayers(startDir, logger)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(layered.Final); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return layered.Final, nil
}

// LoadLayered returns every layer found from startDir together with the
// merged result, for `nudge config show --layers`.
func LoadLayered(startDir string) (*LayeredConfig, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return loadLayers(startDir, logger)
}

func loadLayers(startDir string, logger *logrus.Logger) (*LayeredConfig, error) {
	layered := &LayeredConfig{}

	// 1. Global config (optional)
	if globalPath := globalConfigPath(); globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		raw, err := readRaw(globalPath)
		if err != nil {
			return nil, err
		}
		layered.Layers = append(layered.Layers, Layer{Source: SourceGlobal, Path: globalPath, Raw: raw})
	}

	// 2. Project config (optional)
	projectPath, err := FindConfigFile(startDir)
	if err != nil && !errors.Is(err, errors.ErrCodeConfigNotFound) {
		return nil, err
	}
	if projectPath != "" && projectPath != globalConfigPath() {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		raw, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		layered.Layers = append(layered.Layers, Layer{Source: SourceProject, Path: projectPath, Raw: raw})
	}

	// 3. Override files next to the project config (optional)
	overrideDir := startDir
	if projectPath != "" {
		overrideDir = filepath.Dir(projectPath)
	}
	for _, name := range overrideNames {
		overridePath := filepath.Join(overrideDir, name)
		if _, err := os.Stat(overridePath); err != nil {
			continue
		}
		logger.WithField("path", overridePath).Debug("Loading local override configuration")
		raw, err := readRaw(overridePath)
		if err != nil {
			return nil, err
		}
		layered.Layers = append(layered.Layers, Layer{Source: SourceOverride, Path: overridePath, Raw: raw})
	}

	merged := map[string]interface{}{}
	var sources []string
	for _, layer := range layered.Layers {
		merged = mergeMaps(merged, layer.Raw)
		sources = append(sources, layer.Path)
	}

	final, err := build(merged)
	if err != nil {
		if len(sources) > 0 {
			if ne := errors.As(err); ne != nil {
				ne.WithDetail("sources", sources)
			}
		}
		return nil, err
	}
	final.Sources = sources
	layered.Final = final

	logger.WithField("layers", len(layered.Layers)).Debug("Configuration loaded and validated successfully")
	return layered, nil
}

// build validates a merged raw document, decodes it and applies defaults.
func build(raw map[string]interface{}) (*Config, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	known := make(map[string]interface{}, len(knownKeys))
	extensions := make(map[string]interface{})
	for k, v := range raw {
		if knownKeys[k] {
			known[k] = v
		} else {
			extensions[k] = v
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		TagName:    "yaml",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create config decoder")
	}
	if err := decoder.Decode(known); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	if len(extensions) > 0 {
		cfg.Extensions = extensions
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Format is the encoding of a config file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

func readRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	raw, err := parseRaw(data, FormatForPath(path))
	if err != nil {
		if ne := errors.As(err); ne != nil {
			ne.WithDetail("path", path)
		}
		return nil, err
	}
	return raw, nil
}

func parseRaw(data []byte, format Format) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))
	raw := map[string]interface{}{}

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	// An empty document decodes to a nil map.
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return raw, nil
}

// FindConfigFile searches for a project configuration file from startDir up
// to the filesystem root. It returns CONFIG_NOT_FOUND when there is none.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// globalConfigPath returns the first global config file that exists, or "".
func globalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"nudge.yml", "nudge.yaml", "nudge.toml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
