// Package layout renders the linker script that gives every compartment its
// own PT_LOAD segment pair and output section.
package layout

import (
	"fmt"
	"regexp"
	"strconv"

	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/protection"
	"compartmentalize/internal/template"
	"compartmentalize/internal/types"
)

// TemplateName labels linker template errors.
const TemplateName = "linker script"

// Hole names in the parsed linker template.
const (
	HoleSegments = "segments"
	HoleSections = "sections"
)

var flagsPattern = regexp.MustCompile(`PT_LOAD\s+FLAGS\(\s*(0[xX][0-9a-fA-F]+|[0-9]+)\s*\)`)

// Generate splices one segment pair per assignment immediately before the
// segment anchor and one output section per assignment immediately after the
// section anchor. All other template lines are kept verbatim.
//
// A template that already declares a segment with a compartment or shadow ID
// is rejected: the generator must be fed the pristine template.
func Generate(cfg config.LayoutConfig, assignments []types.Assignment, templateText string) (string, error) {
	tmpl, err := ParseTemplate(cfg, templateText)
	if err != nil {
		return "", err
	}

	segments := make([]string, 0, 2*len(assignments))
	sections := make([]string, 0, len(assignments))
	for _, a := range assignments {
		segments = append(segments, SegmentLines(cfg, a)...)
		sections = append(sections, SectionLine(cfg, a))
	}

	logging.LayoutDebug("segments before line %d, sections after line %d",
		tmpl.Anchor(HoleSegments)+1, tmpl.Anchor(HoleSections)+1)
	logging.Layout("%d segments, %d sections", len(segments), len(sections))

	return tmpl.Render(map[string][]string{
		HoleSegments: segments,
		HoleSections: sections,
	}), nil
}

// ParseTemplate binds the segment and section anchors and checks that the
// template has not been patched already.
func ParseTemplate(cfg config.LayoutConfig, templateText string) (*template.Template, error) {
	tmpl, err := template.Parse(TemplateName, templateText,
		template.HoleSpec{Name: HoleSegments, Anchor: cfg.SegmentAnchor, Placement: template.Before},
		template.HoleSpec{Name: HoleSections, Anchor: cfg.SectionAnchor, Placement: template.After},
	)
	if err != nil {
		return nil, err
	}

	for i, line := range tmpl.Lines {
		m := flagsPattern.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}
		flags, err := strconv.ParseUint(m[1], 0, 32)
		if err != nil {
			continue
		}
		if protection.IsReserved(cfg, uint32(flags)) {
			logging.Get(logging.CategoryLayout).Warn("line %d declares reserved flags 0x%x", i+1, flags)
			return nil, &types.TemplateAnchorMissingError{
				Template: TemplateName,
				Anchor:   cfg.SegmentAnchor,
				Reason:   types.AnchorAlreadyPatched,
			}
		}
	}

	return tmpl, nil
}

// SegmentLines returns the primary and shadow program headers of a.
func SegmentLines(cfg config.LayoutConfig, a types.Assignment) []string {
	name := a.Compartment.Name
	return []string{
		fmt.Sprintf("\t%s PT_LOAD FLAGS(%s);", name, a.Primary.Hex()),
		fmt.Sprintf("\t%s%s PT_LOAD FLAGS(%s);", name, cfg.SymtabSuffix, a.Shadow.Hex()),
	}
}

// SectionLine returns the output section collecting every input section
// prefixed by the compartment name, bound to its primary segment.
func SectionLine(cfg config.LayoutConfig, a types.Assignment) string {
	name := a.Compartment.Name
	return fmt.Sprintf(".%s : ALIGN(%d) { %s* } > %s :%s", name, cfg.SectionAlign, name, cfg.MemoryRegion, name)
}
