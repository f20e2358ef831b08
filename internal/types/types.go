// Package types provides the shared data model for compartment layout synthesis.
// Everything downstream of the system description (ID allocation, linker
// layout, name table, build variables, the toolchain) speaks these types, so
// this package has no dependencies on the rest of the module.
package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// COMPARTMENT MODEL
// =============================================================================

// Compartment is a named group of source files destined for its own
// protection domain. Identity is the name; the ordinal is the position in the
// system description and drives every ID and table row derived from it.
type Compartment struct {
	Name    string
	Sources []string
	Ordinal int
}

// CompartmentSet is the ordered, name-unique list of compartments parsed from
// a system description. It is immutable once built by NewCompartmentSet.
type CompartmentSet struct {
	compartments []Compartment
	index        map[string]int
}

// NewCompartmentSet builds a set from compartments in description order.
// Ordinals are reassigned from the slice position. Duplicate or empty names
// and empty source lists are rejected with a MalformedDescriptionError.
func NewCompartmentSet(compartments []Compartment) (*CompartmentSet, error) {
	set := &CompartmentSet{
		compartments: make([]Compartment, 0, len(compartments)),
		index:        make(map[string]int, len(compartments)),
	}

	for i, c := range compartments {
		if c.Name == "" {
			return nil, &MalformedDescriptionError{
				Reason: fmt.Sprintf("compartment #%d has an empty name", i),
			}
		}
		if _, exists := set.index[c.Name]; exists {
			return nil, &MalformedDescriptionError{
				Compartment: c.Name,
				Reason:      "duplicate compartment name",
			}
		}
		if len(c.Sources) == 0 {
			return nil, &MalformedDescriptionError{
				Compartment: c.Name,
				Reason:      "source list is empty",
			}
		}

		sources := make([]string, len(c.Sources))
		copy(sources, c.Sources)

		set.index[c.Name] = i
		set.compartments = append(set.compartments, Compartment{
			Name:    c.Name,
			Sources: sources,
			Ordinal: i,
		})
	}

	return set, nil
}

// Len returns the number of compartments.
func (s *CompartmentSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.compartments)
}

// All returns a copy of the compartments in ordinal order.
func (s *CompartmentSet) All() []Compartment {
	if s == nil {
		return nil
	}
	out := make([]Compartment, len(s.compartments))
	copy(out, s.compartments)
	return out
}

// At returns the compartment with the given ordinal.
func (s *CompartmentSet) At(ordinal int) Compartment {
	return s.compartments[ordinal]
}

// Lookup finds a compartment by name.
func (s *CompartmentSet) Lookup(name string) (Compartment, bool) {
	if s == nil {
		return Compartment{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Compartment{}, false
	}
	return s.compartments[i], true
}

// Names returns the compartment names in ordinal order.
func (s *CompartmentSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, c := range s.All() {
		names = append(names, c.Name)
	}
	return names
}

// String renders the set for logs.
func (s *CompartmentSet) String() string {
	return fmt.Sprintf("CompartmentSet[%s]", strings.Join(s.Names(), ", "))
}

// =============================================================================
// PROTECTION IDS
// =============================================================================

// ProtectionID is the value encoded into a segment's flag field so the
// firmware can tag and check a domain's access rights.
type ProtectionID uint32

// Hex renders the ID the way linker FLAGS() expects it.
func (id ProtectionID) Hex() string {
	return fmt.Sprintf("0x%x", uint32(id))
}

// Assignment binds a compartment to its primary and shadow protection IDs.
// The shadow ID tags the compartment's symbol-table segment.
type Assignment struct {
	Compartment Compartment
	Primary     ProtectionID
	Shadow      ProtectionID
}

// =============================================================================
// BUILD ARTIFACTS
// =============================================================================

// Artifact describes what the Object-Code Producer left on disk for one
// compartment.
type Artifact struct {
	Compartment string
	// Objects are the per-source relocatable objects, in source order.
	Objects []string
	// Archive is the per-compartment static archive.
	Archive string
	// Wrapped is the single relocatable object handed to the final link.
	Wrapped string
}
