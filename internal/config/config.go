package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked up next to the system
// description when --config is not given.
const DefaultConfigFile = "compartmentalize.yaml"

// Config holds all compartmentalize configuration. It is passed explicitly to
// every generator; nothing in the core reads process-wide settings.
type Config struct {
	// Linker layout and protection-ID encoding
	Layout LayoutConfig `yaml:"layout"`

	// Runtime name table
	NameTable NameTableConfig `yaml:"name_table"`

	// Build template patching
	BuildVars BuildVarsConfig `yaml:"build_vars"`

	// External compiler/archiver/linker
	Toolchain ToolchainConfig `yaml:"toolchain"`

	// Where rendered artifacts are written
	Outputs OutputsConfig `yaml:"outputs"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OutputsConfig names the generated artifacts, relative to the output directory.
type OutputsConfig struct {
	LinkerScript string `yaml:"linker_script"`
	NameTable    string `yaml:"name_table"`
	BuildFile    string `yaml:"build_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Layout:    DefaultLayoutConfig(),
		NameTable: DefaultNameTableConfig(),
		BuildVars: DefaultBuildVarsConfig(),
		Toolchain: DefaultToolchainConfig(),

		Outputs: OutputsConfig{
			LinkerScript: "link.ld",
			NameTable:    "comp_strtab.c",
			BuildFile:    "Makefile",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Toolchain binaries follow the usual make conventions
	if cc := os.Getenv("CC"); cc != "" {
		c.Toolchain.CC = cc
	}
	if ar := os.Getenv("AR"); ar != "" {
		c.Toolchain.AR = ar
	}
	if ld := os.Getenv("LD"); ld != "" {
		c.Toolchain.LD = ld
	}

	if jobs := os.Getenv("COMPARTMENTALIZE_JOBS"); jobs != "" {
		if n, err := strconv.Atoi(jobs); err == nil && n > 0 {
			c.Toolchain.Jobs = n
		}
	}

	if level := os.Getenv("COMPARTMENTALIZE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.NameTable.Symbol == "" {
		return fmt.Errorf("name_table: symbol is required")
	}
	if err := c.BuildVars.Validate(); err != nil {
		return fmt.Errorf("build_vars: %w", err)
	}
	if err := c.Toolchain.Validate(); err != nil {
		return fmt.Errorf("toolchain: %w", err)
	}
	if c.Outputs.LinkerScript == "" || c.Outputs.NameTable == "" || c.Outputs.BuildFile == "" {
		return fmt.Errorf("outputs: linker_script, name_table and build_file are required")
	}
	return nil
}
