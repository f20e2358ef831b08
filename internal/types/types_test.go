package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompartmentSet_AssignsOrdinals(t *testing.T) {
	set, err := NewCompartmentSet([]Compartment{
		{Name: "A", Sources: []string{"a.c"}, Ordinal: 7},
		{Name: "B", Sources: []string{"b.c", "c.c"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"A", "B"}, set.Names())
	assert.Equal(t, 0, set.At(0).Ordinal)
	assert.Equal(t, 1, set.At(1).Ordinal)

	b, ok := set.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, []string{"b.c", "c.c"}, b.Sources)

	_, ok = set.Lookup("C")
	assert.False(t, ok)
}

func TestNewCompartmentSet_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input []Compartment
	}{
		{"duplicate", []Compartment{{Name: "A", Sources: []string{"a.c"}}, {Name: "A", Sources: []string{"b.c"}}}},
		{"empty name", []Compartment{{Name: "", Sources: []string{"a.c"}}}},
		{"no sources", []Compartment{{Name: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompartmentSet(tt.input)
			var malformed *MalformedDescriptionError
			require.True(t, errors.As(err, &malformed), "got %v", err)
		})
	}
}

func TestCompartmentSet_AllIsACopy(t *testing.T) {
	set, err := NewCompartmentSet([]Compartment{{Name: "A", Sources: []string{"a.c"}}})
	require.NoError(t, err)

	all := set.All()
	all[0].Name = "mutated"
	assert.Equal(t, "A", set.At(0).Name)
}

func TestEmptySet(t *testing.T) {
	set, err := NewCompartmentSet(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Names())

	var nilSet *CompartmentSet
	assert.Equal(t, 0, nilSet.Len())
}

func TestProtectionIDHex(t *testing.T) {
	assert.Equal(t, "0xf800", ProtectionID(0xF800).Hex())
	assert.Equal(t, "0xfc01", ProtectionID(0xFC01).Hex())
}

func TestErrorMessages(t *testing.T) {
	err := &TemplateAnchorMissingError{Template: "link.ld", Anchor: "PHDRS", Reason: AnchorDuplicated, Count: 2}
	assert.Contains(t, err.Error(), "appears 2 times")

	err = &TemplateAnchorMissingError{Template: "link.ld", Anchor: "PHDRS", Reason: AnchorMissing}
	assert.Contains(t, err.Error(), "not found")

	toolErr := &ExternalToolFailureError{Compartment: "A", Tool: "clang", ExitCode: 1, Output: "a.c:1: error\n"}
	assert.Contains(t, toolErr.Error(), `compartment "A": clang exited with status 1`)
	assert.Contains(t, toolErr.Error(), "a.c:1: error")

	capErr := &CapacityExceededError{Compartment: "long", Limit: 4, Got: 9, Reason: "name too long"}
	assert.Contains(t, capErr.Error(), `"long"`)
}
