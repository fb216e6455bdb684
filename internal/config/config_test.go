package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Output.Format != "sexp" {
		t.Errorf("expected default format 'sexp', got %s", cfg.Output.Format)
	}
	if !cfg.Parser.FrontMatter || !cfg.Parser.PandocExtensions {
		t.Error("expected front matter and pandoc extensions enabled by default")
	}
	if cfg.Check.FailOnDiagnostics {
		t.Error("expected fail_on_diagnostics off by default")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Log.Level)
	}
}

func TestConfig_Set(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(c *Config) bool
	}{
		{"output.format", "json", false, func(c *Config) bool { return c.Output.Format == "json" }},
		{"output.format", "html", true, nil},
		{"output.pretty", "false", false, func(c *Config) bool { return !c.Output.Pretty }},
		{"output.fields", "0", false, func(c *Config) bool { return !c.Output.Fields }},
		{"parser.front_matter", "false", false, func(c *Config) bool { return !c.Parser.FrontMatter }},
		{"parser.pandoc_extensions", "no", true, nil},
		{"check.fail_on_diagnostics", "true", false, func(c *Config) bool { return c.Check.FailOnDiagnostics }},
		{"check.watch", "1", false, func(c *Config) bool { return c.Check.Watch }},
		{"log.level", "debug", false, func(c *Config) bool { return c.Log.Level == "debug" }},
		{"log.level", "loud", true, nil},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tc.key, tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.check(cfg) {
				t.Errorf("value not applied: %+v", cfg)
			}
		})
	}
}

func TestConfig_SetUnknownKey(t *testing.T) {
	err := DefaultConfig().Set("providers.openai", "x")
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 8 {
		t.Fatalf("expected 8 keys, got %d: %v", len(keys), keys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted: %v", keys)
		}
	}
}

func TestLoader_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	loader := NewLoaderWithPath(configPath)

	cfg := DefaultConfig()
	cfg.Output.Format = "yaml"
	cfg.Parser.PandocExtensions = false

	if err := loader.Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	if !loader.Exists() {
		t.Error("expected config file to exist after save")
	}

	loaded, err := loader.LoadRaw()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

func TestLoader_LoadNonExistent(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nonexistent", "config.yaml")

	loader := NewLoaderWithPath(configPath)

	cfg, err := loader.LoadRaw()
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got: %v", err)
	}

	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("check:\n  watch: true\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoaderWithPath(configPath).LoadRaw()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Check.Watch {
		t.Error("expected check.watch from file")
	}
	if cfg.Output.Format != "sexp" || !cfg.Parser.FrontMatter {
		t.Errorf("expected defaults for missing keys, got %+v", cfg)
	}
}

func TestLoader_ExpandEnvVars(t *testing.T) {
	t.Setenv("QMDTREE_TEST_FORMAT", "json")
	t.Setenv("QMDTREE_TEST_EMPTY", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `output:
  format: ${QMDTREE_TEST_FORMAT}
log:
  level: ${QMDTREE_TEST_EMPTY:-error}
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	loader := NewLoaderWithPath(configPath)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Output.Format != "json" {
		t.Errorf("expected format 'json', got %s", cfg.Output.Format)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected default log level 'error', got %s", cfg.Log.Level)
	}

	raw, err := loader.LoadRaw()
	if err == nil {
		t.Errorf("expected raw load to reject unexpanded format, got %+v", raw)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QMDTREE_TEST_SET", "value")
	os.Unsetenv("QMDTREE_TEST_UNSET")

	tests := []struct {
		in   string
		want string
	}{
		{"${QMDTREE_TEST_SET}", "value"},
		{"${QMDTREE_TEST_UNSET}", ""},
		{"${QMDTREE_TEST_UNSET:-fallback}", "fallback"},
		{"${QMDTREE_TEST_SET:-fallback}", "value"},
		{"a ${QMDTREE_TEST_SET} b", "a value b"},
		{"${not valid}", "${not valid}"},
		{"$QMDTREE_TEST_SET", "$QMDTREE_TEST_SET"},
	}

	for _, tc := range tests {
		if got := expandEnvVars(tc.in); got != tc.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvFormat, "yaml")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStrict, "yes")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Output.Format != "yaml" {
		t.Errorf("expected format 'yaml', got %s", cfg.Output.Format)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
	if !cfg.Check.FailOnDiagnostics {
		t.Error("expected strict mode from environment")
	}
}

func TestApplyEnv_IgnoresInvalid(t *testing.T) {
	t.Setenv(EnvFormat, "html")
	t.Setenv(EnvLogLevel, "loud")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Output.Format != "sexp" {
		t.Errorf("expected invalid format ignored, got %s", cfg.Output.Format)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected invalid level ignored, got %s", cfg.Log.Level)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	if v := GetEnvOrDefault("TEST_VAR", "default"); v != "test-value" {
		t.Errorf("expected 'test-value', got %s", v)
	}

	if v := GetEnvOrDefault("NONEXISTENT_VAR", "default"); v != "default" {
		t.Errorf("expected 'default', got %s", v)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"", false},
		{"invalid", false},
	}

	for _, tc := range tests {
		t.Setenv("TEST_BOOL", tc.value)
		if got := GetEnvBool("TEST_BOOL"); got != tc.expected {
			t.Errorf("GetEnvBool(%q): expected %v, got %v", tc.value, tc.expected, got)
		}
	}
}

func TestNewLoader(t *testing.T) {
	loader, err := NewLoader()
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	path := loader.ConfigPath()
	if filepath.Base(path) != ConfigFileName {
		t.Errorf("expected config file name %s, got %s", ConfigFileName, filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != ConfigDirName {
		t.Errorf("expected config dir %s, got %s", ConfigDirName, filepath.Dir(path))
	}
}

func TestLoader_Init(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	loader := NewLoaderWithPath(configPath)

	if err := loader.Init(); err != nil {
		t.Fatalf("failed to init config: %v", err)
	}

	if !loader.Exists() {
		t.Error("expected config file to exist after init")
	}

	if err := loader.Init(); err == nil {
		t.Error("expected error when initializing existing config")
	}
}

func TestLoader_LoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("{{{{invalid yaml"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	loader := NewLoaderWithPath(configPath)
	if _, err := loader.Load(); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
