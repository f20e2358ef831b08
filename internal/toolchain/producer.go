// Package toolchain is the Object-Code Producer: it turns a compartment's
// sources into one wrapped relocatable object using an external compiler,
// archiver and linker.
//
// For compartment "net" with sources a.c and b.c the produced files are
//
//	<object_dir>/net/0_a.o, <object_dir>/net/1_b.o   (cc -c)
//	<object_dir>/libnet.a                            (ar rcs)
//	<object_dir>/net.wrapped.o                       (ld -r --whole-archive)
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"compartmentalize/internal/build"
	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/types"
)

// ExecProducer implements types.Producer on top of a Runner.
type ExecProducer struct {
	tools   config.ToolchainConfig
	suffix  string
	workDir string
	env     []string
	runner  Runner
	audit   *logging.AuditLogger
}

var _ types.Producer = (*ExecProducer)(nil)

// NewExecProducer creates a producer. Relative source paths and the object
// directory are resolved against workDir. A nil runner runs host processes.
func NewExecProducer(cfg *config.Config, runner Runner, workDir string) *ExecProducer {
	if runner == nil {
		runner = NewExecRunner(cfg.Toolchain.GetTimeout())
	}
	return &ExecProducer{
		tools:   cfg.Toolchain,
		suffix:  cfg.BuildVars.ArtifactSuffix,
		workDir: workDir,
		env:     build.ToolchainEnv(cfg.Toolchain, workDir),
		runner:  runner,
	}
}

// SetAudit records every tool invocation on the given audit trail.
func (p *ExecProducer) SetAudit(a *logging.AuditLogger) {
	p.audit = a
}

// ObjectDir returns the directory artifacts are written to, as passed to the
// tools (relative to the work directory unless configured absolute).
func (p *ExecProducer) ObjectDir() string {
	return filepath.Clean(p.tools.ObjectDir)
}

// WrappedDir returns the absolute directory wrapped objects are written to.
func (p *ExecProducer) WrappedDir() (string, error) {
	return filepath.Abs(p.resolve(p.ObjectDir()))
}

// Produce compiles, archives and wraps c.
func (p *ExecProducer) Produce(ctx context.Context, c types.Compartment) (*types.Artifact, error) {
	timer := logging.StartTimer(logging.CategoryToolchain, "produce "+c.Name)
	defer timer.Stop()

	objDir := p.ObjectDir()
	if err := os.MkdirAll(p.resolve(filepath.Join(objDir, c.Name)), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory for %s: %w", c.Name, err)
	}

	artifact := &types.Artifact{
		Compartment: c.Name,
		Objects:     make([]string, 0, len(c.Sources)),
		Archive:     filepath.Join(objDir, "lib"+c.Name+".a"),
		Wrapped:     filepath.Join(objDir, c.Name+p.suffix),
	}

	for i, src := range c.Sources {
		obj := filepath.Join(objDir, c.Name, objectName(i, src))
		args := append(append([]string{}, p.tools.CFlags...), "-c", src, "-o", obj)
		if err := p.run(ctx, c.Name, p.tools.CC, args); err != nil {
			return nil, err
		}
		artifact.Objects = append(artifact.Objects, obj)
	}

	// ar appends to an existing archive; start from scratch
	if err := os.Remove(p.resolve(artifact.Archive)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale archive %s: %w", artifact.Archive, err)
	}
	arArgs := append([]string{"rcs", artifact.Archive}, artifact.Objects...)
	if err := p.run(ctx, c.Name, p.tools.AR, arArgs); err != nil {
		return nil, err
	}

	ldArgs := append([]string{"-r"}, p.tools.LDFlags...)
	ldArgs = append(ldArgs, "--whole-archive", artifact.Archive, "--no-whole-archive", "-o", artifact.Wrapped)
	if err := p.run(ctx, c.Name, p.tools.LD, ldArgs); err != nil {
		return nil, err
	}

	logging.Toolchain("%s: %d objects wrapped into %s", c.Name, len(artifact.Objects), artifact.Wrapped)
	return artifact, nil
}

func (p *ExecProducer) run(ctx context.Context, compartment, binary string, args []string) error {
	inv := Invocation{Binary: binary, Args: args, Dir: p.workDir, Env: p.env}

	start := time.Now()
	result, err := p.runner.Run(ctx, inv)

	var failure error
	switch {
	case err != nil:
		output := ""
		if result != nil {
			output = result.Output
		}
		failure = &types.ExternalToolFailureError{Compartment: compartment, Tool: binary, ExitCode: -1, Output: output, Err: err}
	case result.ExitCode != 0:
		failure = &types.ExternalToolFailureError{Compartment: compartment, Tool: binary, ExitCode: result.ExitCode, Output: result.Output}
	}

	if p.audit != nil {
		p.audit.ToolExec(compartment, binary, time.Since(start), failure)
	}
	if failure != nil {
		logging.ToolchainError("%s: %s", compartment, inv)
		return failure
	}
	logging.ToolchainDebug("%s: %s", compartment, inv)
	return nil
}

func (p *ExecProducer) resolve(path string) string {
	if filepath.IsAbs(path) || p.workDir == "" {
		return path
	}
	return filepath.Join(p.workDir, path)
}

// objectName keeps objects of same-named sources in different directories
// apart by prefixing the source index.
func objectName(i int, src string) string {
	base := filepath.Base(src)
	return fmt.Sprintf("%d_%s.o", i, strings.TrimSuffix(base, filepath.Ext(base)))
}
