package main

import (
	"fmt"
	"os"
	"path/filepath"

	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/synth"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string

	// Input/output flags shared by build, layout and watch
	descriptionPath    string
	linkerTemplatePath string
	buildTemplatePath  string
	outputDir          string
	jobs               int
	checkOnly          bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "compartmentalize",
	Short: "Compartment layout synthesizer for CHERI RISC-V firmware",
	Long: `compartmentalize turns a system description of named compartments into
the artifacts a CHERI RISC-V FreeRTOS build needs:

  - a linker script with one PT_LOAD segment pair and one output section
    per compartment, tagged with its protection IDs
  - a C name table mapping compartment IDs back to names
  - a build file listing every compartment's wrapped object

Compartment order in the description is significant: it fixes every ID.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		if err := logging.Initialize(logging.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config %s loaded", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "compartmentalize %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&descriptionPath, "description", "d", "system.yml", "System description (YAML or JSON)")

	for _, cmd := range []*cobra.Command{buildCmd, layoutCmd, watchCmd} {
		cmd.Flags().StringVar(&linkerTemplatePath, "linker-template", "link.ld.in", "Linker script template")
		cmd.Flags().StringVar(&buildTemplatePath, "build-template", "Makefile.in", "Build file template")
		cmd.Flags().StringVarP(&outputDir, "out", "o", ".", "Directory for generated files")
	}
	layoutCmd.Flags().BoolVar(&checkOnly, "check", false, "Compare with existing outputs instead of writing")
	buildCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent compartment builds (default from config)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(idsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// pipelineOptions builds run options from the command-line flags.
func pipelineOptions() synth.Options {
	return synth.Options{
		Config:             cfg,
		DescriptionPath:    descriptionPath,
		LinkerTemplatePath: linkerTemplatePath,
		BuildTemplatePath:  buildTemplatePath,
		OutputDir:          outputDir,
	}
}

// sourceRoot is where relative source paths in the description resolve.
func sourceRoot() string {
	abs, err := filepath.Abs(descriptionPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(abs)
}
