package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"compartmentalize/internal/diff"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/synth"
	"compartmentalize/internal/toolchain"

	"github.com/spf13/cobra"
)

// buildCmd compiles every compartment and writes the layout artifacts
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile compartments and generate the linker script, name table and build file",
	Long: `Runs the full pipeline:
  1. Parse the system description
  2. Allocate primary and shadow protection IDs
  3. Render the linker script, name table and build file in memory
  4. Compile, archive and wrap each compartment with the configured toolchain
  5. Write the generated files

Nothing is written if any step fails.

Wrapped objects are written to toolchain.object_dir, resolved against the
directory of the system description. The build file lists artifacts as bare
names unless build_vars.artifact_dir is set, so either set it to the object
directory relative to the build file or point the build file's VPATH there.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// layoutCmd generates the layout artifacts without compiling
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Generate the linker script, name table and build file only",
	Long: `Generates the linker script, name table and build file without compiling.

With --check nothing is written: the generated files are compared with the
ones in the output directory, differences are printed as unified diffs and
the command fails if any file is out of date.`,
	Args: cobra.NoArgs,
	RunE: runLayout,
}

// watchCmd regenerates the layout artifacts on every input change
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate layout artifacts whenever the description or a template changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if jobs > 0 {
		cfg.Toolchain.Jobs = jobs
	}

	opts := pipelineOptions()
	opts.Producer = toolchain.NewExecProducer(cfg, nil, sourceRoot())

	result, err := synth.Run(ctx, opts)
	if err != nil {
		return err
	}
	printResult(cmd, result)
	return nil
}

func runLayout(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if checkOnly {
		stale, err := synth.Check(ctx, pipelineOptions())
		for _, d := range stale {
			fmt.Fprint(cmd.OutOrStdout(), diff.Unified(d))
		}
		return err
	}

	result, err := synth.Run(ctx, pipelineOptions())
	if err != nil {
		return err
	}
	printResult(cmd, result)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	w, err := synth.NewWatcher(pipelineOptions())
	if err != nil {
		return err
	}
	w.SetCallback(func(result *synth.Result, err error) {
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			return
		}
		printResult(cmd, result)
	})

	// an initial failure is reported but does not stop watching
	_, _ = w.TriggerRun(ctx)

	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	logging.Watch("watching %s, %s, %s", descriptionPath, linkerTemplatePath, buildTemplatePath)

	<-w.Done()
	w.Stop()
	return nil
}

func printResult(cmd *cobra.Command, result *synth.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d compartments\n", result.Set.Len())
	for _, a := range result.Artifacts {
		fmt.Fprintf(out, "  built %s\n", a.Wrapped)
	}
	for _, f := range result.Files {
		fmt.Fprintf(out, "  wrote %s\n", f)
	}
}
