package synth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"compartmentalize/internal/config"
	"compartmentalize/internal/diff"
)

// ErrOutOfDate is returned by Check when a generated file differs from disk.
var ErrOutOfDate = errors.New("generated files are out of date")

// Check renders the layout artifacts and compares them with the files in the
// output directory without writing anything. It returns one diff per file
// that would change, and ErrOutOfDate if there is any.
func Check(ctx context.Context, opts Options) ([]*diff.FileDiff, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	cfg := opts.Config

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, _, rendered, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	engine := diff.NewEngine()
	var stale []*diff.FileDiff
	for _, f := range []struct{ name, content string }{
		{cfg.Outputs.LinkerScript, rendered.LinkerScript},
		{cfg.Outputs.NameTable, rendered.NameTable},
		{cfg.Outputs.BuildFile, rendered.BuildFile},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := outputPath(opts.OutputDir, f.name)
		current, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		d := engine.ComputeDiff(path, path+" (generated)", string(current), f.content)
		if d.Changed() {
			stale = append(stale, d)
		}
	}

	if len(stale) > 0 {
		return stale, ErrOutOfDate
	}
	return nil, nil
}
