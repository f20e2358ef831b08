package synth

import (
	"context"
	"errors"
	"testing"

	"compartmentalize/internal/diff"
	"compartmentalize/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_MissingOutputs(t *testing.T) {
	f := newFixture(t)

	stale, err := Check(context.Background(), f.opts)
	require.ErrorIs(t, err, ErrOutOfDate)
	require.Len(t, stale, 3)
	assert.True(t, stale[0].IsNew)
	f.assertNoOutputs(t)
}

func TestCheck_UpToDateThenStale(t *testing.T) {
	f := newFixture(t)
	_, err := Run(context.Background(), f.opts)
	require.NoError(t, err)

	stale, err := Check(context.Background(), f.opts)
	require.NoError(t, err)
	assert.Empty(t, stale)

	f.write(t, "system.yml", description+"  - C:\n      input: [d.c]\n")
	stale, err = Check(context.Background(), f.opts)
	require.ErrorIs(t, err, ErrOutOfDate)
	require.Len(t, stale, 3)
	assert.Contains(t, diff.Unified(stale[0]), "+\tC PT_LOAD FLAGS(0xf802);")
}

func TestCheck_PropagatesAnchorErrors(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Makefile.in", "PROG = main\n")

	_, err := Check(context.Background(), f.opts)
	var anchorErr *types.TemplateAnchorMissingError
	require.True(t, errors.As(err, &anchorErr), "got %v", err)
}

func TestCheck_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stale, err := Check(ctx, f.opts)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, stale)
}
