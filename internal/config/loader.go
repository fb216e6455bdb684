package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = ".qmdtree"
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.yaml"
)

// envVarPattern matches ${VAR_NAME} and ${VAR_NAME:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Loader handles configuration loading and saving.
type Loader struct {
	configDir  string
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ConfigDirName)
	configPath := filepath.Join(configDir, ConfigFileName)

	return &Loader{
		configDir:  configDir,
		configPath: configPath,
	}, nil
}

// NewLoaderWithPath creates a loader with a custom config path.
func NewLoaderWithPath(configPath string) *Loader {
	return &Loader{
		configDir:  filepath.Dir(configPath),
		configPath: configPath,
	}
}

// ConfigPath returns the configuration file path.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// Load reads the configuration file, expands environment variables and
// applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.load(true)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadRaw reads the configuration without expanding environment variables.
func (l *Loader) LoadRaw() (*Config, error) {
	return l.load(false)
}

func (l *Loader) load(expand bool) (*Config, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if expand {
		data = []byte(expandEnvVars(string(data)))
	}

	// Keys missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Output.Format != "" && !ValidFormat(cfg.Output.Format) {
		return nil, fmt.Errorf("invalid output format in config: %q", cfg.Output.Format)
	}

	return cfg, nil
}

// Save writes the configuration to the file.
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(l.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file exists.
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.configPath)
	return err == nil
}

// Init creates a default configuration file.
func (l *Loader) Init() error {
	if l.Exists() {
		return fmt.Errorf("config file already exists: %s", l.configPath)
	}
	return l.Save(DefaultConfig())
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// ${VAR_NAME:-default} falls back to default when the variable is unset
// or empty.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(m[1]); value != "" {
			return value
		}
		return m[3]
	})
}

// GetEnvOrDefault returns the environment variable value or a default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool returns true if the environment variable is set to "true" or "1".
func GetEnvBool(key string) bool {
	value := strings.ToLower(os.Getenv(key))
	return value == "true" || value == "1" || value == "yes"
}
