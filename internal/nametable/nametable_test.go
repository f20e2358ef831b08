package nametable

import (
	"errors"
	"strings"
	"testing"

	"compartmentalize/internal/config"
	"compartmentalize/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(t *testing.T, names ...string) *types.CompartmentSet {
	t.Helper()
	compartments := make([]types.Compartment, 0, len(names))
	for _, n := range names {
		compartments = append(compartments, types.Compartment{Name: n, Sources: []string{"x.c"}})
	}
	s, err := types.NewCompartmentSet(compartments)
	require.NoError(t, err)
	return s
}

func TestGenerate_Scenario(t *testing.T) {
	out, err := Generate(config.DefaultConfig(), set(t, "A", "B"))
	require.NoError(t, err)

	want := banner + "\n\n" +
		"char comp_strtab[2][32] = {\n" +
		"\t\"A\",\n" +
		"\t\"B\",\n" +
		"};\n"
	assert.Equal(t, want, out)
}

func TestGenerate_Empty(t *testing.T) {
	out, err := Generate(config.DefaultConfig(), set(t))
	require.NoError(t, err)
	assert.Contains(t, out, "char comp_strtab[0][32] = {\n};\n")
	assert.Equal(t, 0, strings.Count(out, "\t\""))
}

func TestGenerate_NameLength(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Layout.MaxNameLength = 4

	t.Run("exactly max fits", func(t *testing.T) {
		out, err := Generate(cfg, set(t, "abcd"))
		require.NoError(t, err)
		assert.Contains(t, out, "[1][4]")
	})

	t.Run("one over fails", func(t *testing.T) {
		_, err := Generate(cfg, set(t, "ok", "abcde"))
		var capErr *types.CapacityExceededError
		require.True(t, errors.As(err, &capErr), "got %v", err)
		assert.Equal(t, "abcde", capErr.Compartment)
		assert.Equal(t, 4, capErr.Limit)
		assert.Equal(t, 5, capErr.Got)
	})

	t.Run("nul terminated", func(t *testing.T) {
		nul := *cfg
		nul.NameTable.NulTerminated = true
		assert.Equal(t, 3, MaxLen(&nul))

		_, err := Generate(&nul, set(t, "abcd"))
		var capErr *types.CapacityExceededError
		require.True(t, errors.As(err, &capErr), "got %v", err)
		assert.Equal(t, 3, capErr.Limit)
	})
}

func TestGenerate_Symbol(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NameTable.Symbol = "names"
	out, err := Generate(cfg, set(t, "A"))
	require.NoError(t, err)
	assert.Contains(t, out, "char names[1][32]")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `plain_name`, escape("plain_name"))
	assert.Equal(t, `a\"b\\c`, escape(`a"b\c`))
	assert.Equal(t, `tab\011`, escape("tab\t"))
}
