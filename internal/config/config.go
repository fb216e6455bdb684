// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by Set for keys outside the configuration.
var ErrUnknownKey = errors.New("unknown config key")

// Environment variables that override the file.
const (
	EnvFormat   = "QMDTREE_FORMAT"
	EnvLogLevel = "QMDTREE_LOG_LEVEL"
	EnvStrict   = "QMDTREE_STRICT"
)

// Config represents the application configuration.
type Config struct {
	Output OutputConfig `yaml:"output"`
	Parser ParserConfig `yaml:"parser"`
	Check  CheckConfig  `yaml:"check"`
	Log    LogConfig    `yaml:"log"`
}

// OutputConfig controls how trees and extractions are printed.
type OutputConfig struct {
	Format string `yaml:"format"` // sexp, json or yaml
	Pretty bool   `yaml:"pretty"`
	Fields bool   `yaml:"fields"` // include field names in sexp output
}

// ParserConfig maps onto the syntax parse options.
type ParserConfig struct {
	FrontMatter      bool `yaml:"front_matter"`
	PandocExtensions bool `yaml:"pandoc_extensions"`
}

// CheckConfig controls the check command.
type CheckConfig struct {
	FailOnDiagnostics bool `yaml:"fail_on_diagnostics"`
	Watch             bool `yaml:"watch"`
}

// LogConfig contains logging options.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: "sexp",
			Pretty: true,
			Fields: true,
		},
		Parser: ParserConfig{
			FrontMatter:      true,
			PandocExtensions: true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Formats lists the accepted output formats.
var Formats = []string{"sexp", "json", "yaml"}

// ValidFormat reports whether f is an accepted output format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

var setters = map[string]func(c *Config, v string) error{
	"output.format": func(c *Config, v string) error {
		if !ValidFormat(v) {
			return fmt.Errorf("invalid format %q (use %s)", v, strings.Join(Formats, ", "))
		}
		c.Output.Format = v
		return nil
	},
	"output.pretty":             boolSetter(func(c *Config) *bool { return &c.Output.Pretty }),
	"output.fields":             boolSetter(func(c *Config) *bool { return &c.Output.Fields }),
	"parser.front_matter":       boolSetter(func(c *Config) *bool { return &c.Parser.FrontMatter }),
	"parser.pandoc_extensions":  boolSetter(func(c *Config) *bool { return &c.Parser.PandocExtensions }),
	"check.fail_on_diagnostics": boolSetter(func(c *Config) *bool { return &c.Check.FailOnDiagnostics }),
	"check.watch":               boolSetter(func(c *Config) *bool { return &c.Check.Watch }),
	"log.level": func(c *Config, v string) error {
		switch v {
		case "debug", "info", "warn", "error":
			c.Log.Level = v
			return nil
		}
		return fmt.Errorf("invalid log level %q", v)
	},
}

func boolSetter(field func(c *Config) *bool) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(c) = b
		return nil
	}
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to a dotted key such as output.format.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return set(c, value)
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := GetEnvOrDefault(EnvFormat, ""); ValidFormat(v) {
		c.Output.Format = v
	}
	if v := GetEnvOrDefault(EnvLogLevel, ""); v != "" {
		_ = c.Set("log.level", v)
	}
	if GetEnvBool(EnvStrict) {
		c.Check.FailOnDiagnostics = true
	}
}
