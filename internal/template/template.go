// Package template turns a text template into an ordered list of lines with
// typed holes, so generated content is spliced by position instead of by
// repeated string search.
//
// A hole is bound to exactly one anchor line. Parse fails with a
// *types.TemplateAnchorMissingError when an anchor is absent or matches more
// than one line; once parsed, rendering cannot misplace content.
package template

import (
	"strings"

	"compartmentalize/internal/types"
)

// Placement says where a hole's generated lines go relative to its anchor.
type Placement int

const (
	// Before inserts immediately before the anchor line, keeping it.
	Before Placement = iota
	// After inserts immediately after the anchor line, keeping it.
	After
	// Replace substitutes the generated lines for the anchor line.
	Replace
)

// HoleSpec describes one anchor to look for.
type HoleSpec struct {
	// Name keys the fill passed to Render.
	Name string
	// Anchor is the literal token; lines containing it are anchors unless
	// Match is set.
	Anchor string
	// Match overrides the default substring match.
	Match     func(line string) bool
	Placement Placement
}

func (s HoleSpec) matches(line string) bool {
	if s.Match != nil {
		return s.Match(line)
	}
	return strings.Contains(line, s.Anchor)
}

// Line is one template line; Hole is set on anchor lines.
type Line struct {
	Text string
	Hole *HoleSpec
}

// Template is a parsed template.
type Template struct {
	Name  string
	Lines []Line

	trailingNewline bool
	eol             string
}

// Parse splits text into lines and binds each spec to its single anchor line.
func Parse(name, text string, specs ...HoleSpec) (*Template, error) {
	t := &Template{Name: name, eol: "\n"}

	// a template with any CRLF ending is rendered with CRLF throughout
	crlf := strings.Contains(text, "\r\n")
	if crlf {
		t.eol = "\r\n"
	}

	body := text
	if strings.HasSuffix(body, "\n") {
		t.trailingNewline = true
		body = strings.TrimSuffix(body, "\n")
	}
	if text != "" {
		for _, raw := range strings.Split(body, "\n") {
			if crlf {
				raw = strings.TrimSuffix(raw, "\r")
			}
			t.Lines = append(t.Lines, Line{Text: raw})
		}
	}

	for i := range specs {
		spec := &specs[i]
		count := 0
		at := -1
		for j, line := range t.Lines {
			if spec.matches(line.Text) {
				count++
				at = j
			}
		}

		switch {
		case count == 0:
			return nil, &types.TemplateAnchorMissingError{Template: name, Anchor: spec.Anchor, Reason: types.AnchorMissing}
		case count > 1:
			return nil, &types.TemplateAnchorMissingError{Template: name, Anchor: spec.Anchor, Count: count, Reason: types.AnchorDuplicated}
		case t.Lines[at].Hole != nil:
			// two specs claiming one line cannot both be honoured
			return nil, &types.TemplateAnchorMissingError{Template: name, Anchor: spec.Anchor, Count: 2, Reason: types.AnchorDuplicated}
		}
		t.Lines[at].Hole = spec
	}

	return t, nil
}

// Anchor returns the line index of the named hole, or -1.
func (t *Template) Anchor(name string) int {
	for i, line := range t.Lines {
		if line.Hole != nil && line.Hole.Name == name {
			return i
		}
	}
	return -1
}

// Render fills every hole and joins the result. Holes without a fill get no
// generated lines; a Replace hole without a fill drops its anchor line.
func (t *Template) Render(fills map[string][]string) string {
	out := make([]string, 0, len(t.Lines))
	for _, line := range t.Lines {
		if line.Hole == nil {
			out = append(out, line.Text)
			continue
		}

		generated := fills[line.Hole.Name]
		switch line.Hole.Placement {
		case Before:
			out = append(out, generated...)
			out = append(out, line.Text)
		case After:
			out = append(out, line.Text)
			out = append(out, generated...)
		case Replace:
			out = append(out, generated...)
		}
	}

	rendered := strings.Join(out, t.eol)
	if t.trailingNewline && len(out) > 0 {
		rendered += t.eol
	}
	return rendered
}
