package config

import (
	"fmt"
	"time"
)

// ToolchainConfig configures the external compiler, archiver and linker used
// to turn each compartment's sources into a wrapped relocatable object.
type ToolchainConfig struct {
	CC string `yaml:"cc"`
	AR string `yaml:"ar"`
	LD string `yaml:"ld"`

	// Flags passed through to every compile
	CFlags []string `yaml:"cflags"`

	// Flags passed through to the relocatable wrap link
	LDFlags []string `yaml:"ldflags"`

	// Directory for objects, archives and wrapped objects
	ObjectDir string `yaml:"object_dir"`

	// Maximum concurrent compartment builds
	Jobs int `yaml:"jobs"`

	// Per-invocation timeout
	Timeout string `yaml:"timeout"`

	// Host environment variables passed to the tools
	AllowedEnvVars []string `yaml:"allowed_env_vars"`

	// Extra KEY=VALUE environment for the tools
	Env map[string]string `yaml:"env"`
}

// DefaultToolchainConfig returns a CHERI LLVM toolchain setup.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		CC:     "clang",
		AR:     "llvm-ar",
		LD:     "ld.lld",
		CFlags: []string{
			"-target", "riscv64-unknown-elf",
			"-march=rv64imafdcxcheri", "-mabi=l64pc128d",
			"-mcmodel=medium", "-fPIC", "-O2",
		},
		ObjectDir:      "build/compartments",
		Jobs:           1,
		Timeout:        "5m",
		AllowedEnvVars: []string{"PATH", "HOME", "TMPDIR", "CHERI_SDK", "SYSROOT"},
		Env:            map[string]string{},
	}
}

// GetTimeout returns the per-invocation timeout as a duration.
func (c ToolchainConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Validate checks that every tool is named.
func (c ToolchainConfig) Validate() error {
	if c.CC == "" || c.AR == "" || c.LD == "" {
		return fmt.Errorf("cc, ar and ld are required")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.ObjectDir == "" {
		return fmt.Errorf("object_dir is required")
	}
	return nil
}
