package config

import "fmt"

// LayoutConfig configures protection-ID encoding and the linker script splice.
type LayoutConfig struct {
	// Longest compartment name; also the row width of the name table
	MaxNameLength int `yaml:"max_name_length"`

	// First primary protection ID (compartment segments)
	PrimaryBase uint32 `yaml:"primary_base"`

	// First shadow protection ID (symbol-table segments)
	ShadowBase uint32 `yaml:"shadow_base"`

	// Exclusive upper bound of the segment flag field
	FlagLimit uint32 `yaml:"flag_limit"`

	// Output section alignment in bytes
	SectionAlign int `yaml:"section_align"`

	// Memory region every compartment section is placed into
	MemoryRegion string `yaml:"memory_region"`

	// Anchor tokens in the linker template
	SegmentAnchor string `yaml:"segment_anchor"`
	SectionAnchor string `yaml:"section_anchor"`

	// Suffix of the shadow segment name
	SymtabSuffix string `yaml:"symtab_suffix"`
}

// DefaultLayoutConfig returns the CHERI RISC-V FreeRTOS layout defaults.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		MaxNameLength: 32,
		PrimaryBase:   0xF800,
		ShadowBase:    0xFC00,
		FlagLimit:     0x10000,
		SectionAlign:  16,
		MemoryRegion:  "dmem",
		SegmentAnchor: "@COMPARTMENT_SEGMENTS@",
		SectionAnchor: "@COMPARTMENT_SECTIONS@",
		SymtabSuffix:  ".symtab",
	}
}

// Validate checks ranges and required tokens.
func (c LayoutConfig) Validate() error {
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("max_name_length must be positive, got %d", c.MaxNameLength)
	}
	if c.ShadowBase <= c.PrimaryBase {
		return fmt.Errorf("shadow_base 0x%x must be above primary_base 0x%x", c.ShadowBase, c.PrimaryBase)
	}
	if c.FlagLimit <= c.ShadowBase {
		return fmt.Errorf("flag_limit 0x%x must be above shadow_base 0x%x", c.FlagLimit, c.ShadowBase)
	}
	if c.SectionAlign <= 0 || c.SectionAlign&(c.SectionAlign-1) != 0 {
		return fmt.Errorf("section_align must be a power of two, got %d", c.SectionAlign)
	}
	if c.MemoryRegion == "" {
		return fmt.Errorf("memory_region is required")
	}
	if c.SegmentAnchor == "" || c.SectionAnchor == "" {
		return fmt.Errorf("segment_anchor and section_anchor are required")
	}
	if c.SegmentAnchor == c.SectionAnchor {
		return fmt.Errorf("segment_anchor and section_anchor must differ")
	}
	return nil
}

// NameTableConfig configures the runtime compartment name table.
type NameTableConfig struct {
	// C symbol of the table
	Symbol string `yaml:"symbol"`

	// Reserve one byte of every row for a NUL terminator
	NulTerminated bool `yaml:"nul_terminated"`
}

// DefaultNameTableConfig returns the symbol the firmware loader links against.
func DefaultNameTableConfig() NameTableConfig {
	return NameTableConfig{
		Symbol: "comp_strtab",
	}
}

// BuildVarsConfig configures the build template patch.
type BuildVarsConfig struct {
	// Variable whose assignment line is the anchor
	Variable string `yaml:"variable"`

	// Appended to a compartment name to form its artifact filename
	ArtifactSuffix string `yaml:"artifact_suffix"`

	// Directory prefixed to every listed artifact, relative to the build
	// file. Empty lists bare names, for build files that set VPATH.
	ArtifactDir string `yaml:"artifact_dir,omitempty"`

	CountVariable   string `yaml:"count_variable"`
	MaxNameVariable string `yaml:"max_name_variable"`

	// Fixed target-platform marker
	PlatformVariable string `yaml:"platform_variable"`
	PlatformValue    string `yaml:"platform_value"`
}

// DefaultBuildVarsConfig returns the FreeRTOS Makefile conventions.
func DefaultBuildVarsConfig() BuildVarsConfig {
	return BuildVarsConfig{
		Variable:         "COMPARTMENTS",
		ArtifactSuffix:   ".wrapped.o",
		CountVariable:    "configCOMPARTMENTS_NUM",
		MaxNameVariable:  "configMAXLEN_COMPNAME",
		PlatformVariable: "configCOMPARTMENTS_TARGET",
		PlatformValue:    "cheri-riscv",
	}
}

// Validate checks that every emitted variable has a name.
func (c BuildVarsConfig) Validate() error {
	if c.Variable == "" {
		return fmt.Errorf("variable is required")
	}
	if c.ArtifactSuffix == "" {
		return fmt.Errorf("artifact_suffix is required")
	}
	if c.CountVariable == "" || c.MaxNameVariable == "" || c.PlatformVariable == "" {
		return fmt.Errorf("count_variable, max_name_variable and platform_variable are required")
	}
	return nil
}
