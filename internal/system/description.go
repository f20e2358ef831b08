// Package system parses a system description into a CompartmentSet.
//
// A description has one top-level key, "compartments", holding a list whose
// elements are one-entry mappings from compartment name to a body:
//
//	compartments:
//	  - A:
//	      input: [a.c]
//	  - B:
//	      input: [b.c, c.c]
//
// JSON is accepted as well since it is a subset of YAML. List order is part of
// the contract: it fixes every compartment's ordinal, protection IDs and table
// row.
package system

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"compartmentalize/internal/logging"
	"compartmentalize/internal/types"

	"gopkg.in/yaml.v3"
)

// identPattern restricts names to what can be used verbatim as a linker
// section name, an input-file glob, a C string and a filename.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// document is the top level of a description file.
type document struct {
	Compartments yaml.Node `yaml:"compartments"`
}

// body is the value bound to a compartment name.
type body struct {
	Input []string `yaml:"input"`
}

// ParseFile reads and parses the description at path.
func ParseFile(path string) (*types.CompartmentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system description: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logging.Description("parsed %s: %d compartments", path, set.Len())
	return set, nil
}

// Parse parses a description. Any structural problem is reported as a
// *types.MalformedDescriptionError; nothing else is returned on failure.
func Parse(data []byte) (*types.CompartmentSet, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &types.MalformedDescriptionError{Reason: "description is empty"}
		}
		return nil, &types.MalformedDescriptionError{Reason: "invalid YAML", Err: err}
	}

	list := &doc.Compartments
	if list.Kind == 0 || list.Tag == "!!null" {
		return nil, &types.MalformedDescriptionError{Reason: `top-level "compartments" list is missing`}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, &types.MalformedDescriptionError{
			Reason: fmt.Sprintf(`"compartments" must be a list (line %d)`, list.Line),
		}
	}

	compartments := make([]types.Compartment, 0, len(list.Content))
	for i, entry := range list.Content {
		c, err := parseEntry(i, entry)
		if err != nil {
			return nil, err
		}
		logging.DescriptionDebug("compartment #%d %s: %d sources", i, c.Name, len(c.Sources))
		compartments = append(compartments, c)
	}

	set, err := types.NewCompartmentSet(compartments)
	if err != nil {
		return nil, err
	}
	if err := checkPrefixes(set.Names()); err != nil {
		return nil, err
	}
	return set, nil
}

// checkPrefixes rejects a name that starts with another compartment's name.
// The section for "net" collects inputs matching net*, so it would also
// swallow every object of "network".
func checkPrefixes(names []string) error {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	// in sorted order a prefix sits directly before some name it prefixes
	for i := 1; i < len(sorted); i++ {
		prev, name := sorted[i-1], sorted[i]
		if strings.HasPrefix(name, prev) {
			return &types.MalformedDescriptionError{
				Compartment: name,
				Reason:      fmt.Sprintf("name starts with compartment %q, whose input pattern %s* would also match it", prev, prev),
			}
		}
	}
	return nil
}

// parseEntry decodes one `- name: {input: [...]}` element.
func parseEntry(i int, entry *yaml.Node) (types.Compartment, error) {
	if entry.Kind != yaml.MappingNode {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Reason: fmt.Sprintf("entry #%d (line %d) must be a mapping from name to body", i, entry.Line),
		}
	}

	// Content holds key/value pairs flattened
	if keys := len(entry.Content) / 2; keys != 1 {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Reason: fmt.Sprintf("entry #%d (line %d) must have exactly one name key, has %d", i, entry.Line, keys),
		}
	}

	keyNode, valueNode := entry.Content[0], entry.Content[1]
	name := keyNode.Value
	if keyNode.Kind != yaml.ScalarNode || name == "" {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Reason: fmt.Sprintf("entry #%d (line %d) has an empty or non-scalar name", i, keyNode.Line),
		}
	}
	if !identPattern.MatchString(name) {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Compartment: name,
			Reason:      "name must match [A-Za-z_][A-Za-z0-9_]*",
		}
	}

	if valueNode.Kind != yaml.MappingNode {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Compartment: name,
			Reason:      fmt.Sprintf(`body (line %d) must be a mapping with an "input" list`, valueNode.Line),
		}
	}

	b, err := decodeBody(valueNode)
	if err != nil {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Compartment: name,
			Reason:      "invalid body",
			Err:         err,
		}
	}

	if len(b.Input) == 0 {
		return types.Compartment{}, &types.MalformedDescriptionError{
			Compartment: name,
			Reason:      "source list is empty",
		}
	}
	for j, src := range b.Input {
		if src == "" {
			return types.Compartment{}, &types.MalformedDescriptionError{
				Compartment: name,
				Reason:      fmt.Sprintf("source #%d is empty", j),
			}
		}
	}

	return types.Compartment{Name: name, Sources: b.Input, Ordinal: i}, nil
}

// decodeBody decodes a body strictly so misspelled keys are not ignored.
func decodeBody(node *yaml.Node) (body, error) {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return body{}, err
	}
	var b body
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return body{}, err
	}
	return b, nil
}
