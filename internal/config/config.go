// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"custodia/internal/paths"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Checks    string `yaml:"checks"`
		Verbose   bool   `yaml:"verbose"`
		Debug     bool   `yaml:"debug"`
		NoColor   bool   `yaml:"no_color"`
		Recursive bool   `yaml:"recursive"`
		Workers   int    `yaml:"workers"`
	} `yaml:"defaults"`

	// Ledger settings
	Ledger struct {
		Path    string `yaml:"path"`
		KeyPath string `yaml:"key_path"`
	} `yaml:"ledger"`

	// Plan storage settings
	Plans struct {
		Dir     string `yaml:"dir"`
		KeyPath string `yaml:"key_path"`
	} `yaml:"plans"`

	// Detection settings
	Detection struct {
		CustomTerms []string `yaml:"custom_terms"`
	} `yaml:"detection"`

	// Redaction output settings
	Redaction struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"redaction"`

	// Profiles for different processing scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a processing profile with specific settings
type Profile struct {
	Checks      string   `yaml:"checks"`
	Verbose     bool     `yaml:"verbose"`
	Debug       bool     `yaml:"debug"`
	NoColor     bool     `yaml:"no_color"`
	Recursive   bool     `yaml:"recursive"`
	Workers     int      `yaml:"workers"`
	OutputDir   string   `yaml:"output_dir"`
	CustomTerms []string `yaml:"custom_terms"`
	Description string   `yaml:"description"`
}

// LoadConfig loads configuration from a YAML file, layering it over the
// built-in defaults. An empty configPath returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault attempts to load the given config file and falls
// back to defaults on any failure.
func LoadConfigOrDefault(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		return defaultConfig()
	}
	return config
}

func defaultConfig() *Config {
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Checks = "all"
	config.Defaults.Workers = 4

	config.Ledger.Path = paths.DefaultLedgerPath()
	config.Ledger.KeyPath = paths.DefaultLedgerKeyPath()
	config.Plans.Dir = paths.DefaultPlanDir()
	config.Plans.KeyPath = paths.DefaultPlanKeyPath()
	config.Redaction.OutputDir = "./redacted"

	config.Profiles["intake"] = Profile{
		Checks:      "SSN,EMAIL,PHONE,CREDIT_CARD",
		Recursive:   true,
		Workers:     4,
		Description: "Initial sweep of a produced document set",
	}
	config.Profiles["production"] = Profile{
		Checks:      "all",
		Recursive:   true,
		Workers:     8,
		NoColor:     true,
		Description: "Full detection pass before producing documents",
	}

	return config
}

// FindConfigFile locates a config file, preferring project-local files
// over the user-level one. Returns empty when none exists.
func FindConfigFile() string {
	for _, candidate := range []string{"custodia.yaml", "custodia.yml", ".custodia.yaml", ".custodia.yml"} {
		if fileExists(candidate) {
			return candidate
		}
	}
	if standard := paths.GetConfigFile(); fileExists(standard) {
		return standard
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// ListProfiles returns the names of all configured profiles.
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	return names
}

// GetProfile returns the named profile, or nil when absent.
func (c *Config) GetProfile(name string) *Profile {
	if profile, ok := c.Profiles[name]; ok {
		return &profile
	}
	return nil
}

// ApplyProfile overlays a profile's settings onto the defaults.
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}

	if profile.Checks != "" {
		c.Defaults.Checks = profile.Checks
	}
	if profile.Workers > 0 {
		c.Defaults.Workers = profile.Workers
	}
	if profile.OutputDir != "" {
		c.Redaction.OutputDir = profile.OutputDir
	}
	if len(profile.CustomTerms) > 0 {
		c.Detection.CustomTerms = profile.CustomTerms
	}
	c.Defaults.Verbose = c.Defaults.Verbose || profile.Verbose
	c.Defaults.Debug = c.Defaults.Debug || profile.Debug
	c.Defaults.NoColor = c.Defaults.NoColor || profile.NoColor
	c.Defaults.Recursive = c.Defaults.Recursive || profile.Recursive
	return nil
}

// ValidateConfig checks configuration values for consistency.
func ValidateConfig(config *Config) error {
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative, got %d", config.Defaults.Workers)
	}
	for name, profile := range config.Profiles {
		if profile.Workers < 0 {
			return fmt.Errorf("profile %q: workers must not be negative, got %d", name, profile.Workers)
		}
	}
	if config.Ledger.Path == "" {
		return fmt.Errorf("ledger.path must not be empty")
	}
	if config.Plans.Dir == "" {
		return fmt.Errorf("plans.dir must not be empty")
	}
	return nil
}
