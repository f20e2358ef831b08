// Package synth runs the layout synthesis pipeline:
//
//	parse description -> allocate IDs -> render artifacts -> produce objects -> write
//
// Every artifact is rendered in memory before anything touches the disk, so a
// failing step leaves no half-patched linker script or build file behind.
package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"compartmentalize/internal/buildvars"
	"compartmentalize/internal/config"
	"compartmentalize/internal/layout"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/nametable"
	"compartmentalize/internal/protection"
	"compartmentalize/internal/system"
	"compartmentalize/internal/toolchain"
	"compartmentalize/internal/types"

	"github.com/google/uuid"
)

// Options configures one pipeline run.
type Options struct {
	Config *config.Config

	DescriptionPath    string
	LinkerTemplatePath string
	BuildTemplatePath  string

	// OutputDir anchors relative output paths from Config.Outputs.
	OutputDir string

	// Producer compiles compartments; nil runs layout only.
	Producer types.Producer
}

// Rendered holds the generated artifacts before they are written.
type Rendered struct {
	LinkerScript string
	NameTable    string
	BuildFile    string
}

// Result describes a completed run.
type Result struct {
	RunID       string
	Set         *types.CompartmentSet
	Assignments []types.Assignment
	Artifacts   []*types.Artifact
	Rendered    *Rendered
	Files       []string
}

// Plan parses the description and allocates protection IDs.
func Plan(cfg *config.Config, descriptionPath string) (*types.CompartmentSet, []types.Assignment, error) {
	set, err := system.ParseFile(descriptionPath)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := protection.Allocate(cfg.Layout, set)
	if err != nil {
		return nil, nil, err
	}
	return set, assignments, nil
}

// Render produces all three artifacts from already-loaded templates.
func Render(cfg *config.Config, set *types.CompartmentSet, assignments []types.Assignment, linkerTemplate, buildTemplate string) (*Rendered, error) {
	script, err := layout.Generate(cfg.Layout, assignments, linkerTemplate)
	if err != nil {
		return nil, err
	}
	table, err := nametable.Generate(cfg, set)
	if err != nil {
		return nil, err
	}
	buildFile, err := buildvars.Patch(cfg, set, buildTemplate)
	if err != nil {
		return nil, err
	}
	return &Rendered{LinkerScript: script, NameTable: table, BuildFile: buildFile}, nil
}

// Run executes the pipeline once.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}

	runID := uuid.NewString()
	audit := logging.Audit(runID)
	audit.RunStart(opts.DescriptionPath)

	start := time.Now()
	result, err := run(ctx, opts, runID, audit)
	audit.RunComplete(time.Since(start), err)

	log := logging.Get(logging.CategoryBuild).With("run", runID)
	if err != nil {
		log.Error("run failed: %v", err)
		return nil, err
	}
	log.Info("%d compartments, %d files in %s",
		result.Set.Len(), len(result.Files), time.Since(start).Round(time.Millisecond))
	return result, nil
}

// prepare parses, allocates and renders everything in memory.
func prepare(opts Options) (*types.CompartmentSet, []types.Assignment, *Rendered, error) {
	cfg := opts.Config

	set, assignments, err := Plan(cfg, opts.DescriptionPath)
	if err != nil {
		return nil, nil, nil, err
	}

	linkerTemplate, err := os.ReadFile(opts.LinkerTemplatePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read linker template: %w", err)
	}
	buildTemplate, err := os.ReadFile(opts.BuildTemplatePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read build template: %w", err)
	}

	rendered, err := Render(cfg, set, assignments, string(linkerTemplate), string(buildTemplate))
	if err != nil {
		return nil, nil, nil, err
	}
	return set, assignments, rendered, nil
}

func run(ctx context.Context, opts Options, runID string, audit *logging.AuditLogger) (*Result, error) {
	cfg := opts.Config

	set, assignments, rendered, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		Set:         set,
		Assignments: assignments,
		Rendered:    rendered,
	}

	if opts.Producer != nil {
		if p, ok := opts.Producer.(*toolchain.ExecProducer); ok {
			p.SetAudit(audit)
			warnBareArtifacts(opts, p)
		}
		artifacts, err := toolchain.ProduceAll(ctx, opts.Producer, set, cfg.Toolchain.Jobs)
		if err != nil {
			return nil, err
		}
		result.Artifacts = artifacts
	}

	tx := NewOutputTx(audit)
	tx.Stage(outputPath(opts.OutputDir, cfg.Outputs.LinkerScript), rendered.LinkerScript)
	tx.Stage(outputPath(opts.OutputDir, cfg.Outputs.NameTable), rendered.NameTable)
	tx.Stage(outputPath(opts.OutputDir, cfg.Outputs.BuildFile), rendered.BuildFile)
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	result.Files = tx.Paths()

	return result, nil
}

// warnBareArtifacts flags a build file that lists bare artifact names while
// the objects land in a different directory.
func warnBareArtifacts(opts Options, p *toolchain.ExecProducer) {
	if opts.Config.BuildVars.ArtifactDir != "" {
		return
	}
	objDir, err := p.WrappedDir()
	if err != nil {
		return
	}
	buildDir, err := filepath.Abs(filepath.Dir(outputPath(opts.OutputDir, opts.Config.Outputs.BuildFile)))
	if err != nil || buildDir == objDir {
		return
	}
	rel, err := filepath.Rel(buildDir, objDir)
	if err != nil {
		rel = objDir
	}
	logging.Get(logging.CategoryBuild).Warn(
		"build file lists bare artifact names but objects are written to %s; set build_vars.artifact_dir: %s or a VPATH",
		objDir, filepath.ToSlash(rel))
}

func outputPath(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
