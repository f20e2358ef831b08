// Package buildvars patches the build template with the compartment artifact
// list and the configuration constants the firmware is compiled with.
package buildvars

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/template"
	"compartmentalize/internal/types"
)

// TemplateName labels build template errors.
const TemplateName = "build template"

const hole = "assignment"

// ArtifactName returns the wrapped-object filename for a compartment, under
// cfg.ArtifactDir when one is set. Build files always get forward slashes.
func ArtifactName(cfg config.BuildVarsConfig, name string) string {
	if cfg.ArtifactDir == "" {
		return name + cfg.ArtifactSuffix
	}
	return path.Join(filepath.ToSlash(cfg.ArtifactDir), name+cfg.ArtifactSuffix)
}

// ArtifactNames returns every artifact filename in ordinal order.
func ArtifactNames(cfg config.BuildVarsConfig, set *types.CompartmentSet) []string {
	names := make([]string, 0, set.Len())
	for _, c := range set.All() {
		names = append(names, ArtifactName(cfg, c.Name))
	}
	return names
}

// assignmentPattern matches `VAR = ...` style lines and captures the operator.
func assignmentPattern(variable string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(variable) + `\s*(::=|:=|\?=|\+=|=)`)
}

// Patch replaces the single assignment to cfg.BuildVars.Variable with the
// artifact list followed by the count, name-length and platform constants.
// Every other line passes through unchanged.
func Patch(cfg *config.Config, set *types.CompartmentSet, templateText string) (string, error) {
	vars := cfg.BuildVars
	pattern := assignmentPattern(vars.Variable)

	count := assignmentPattern(vars.CountVariable)
	for _, line := range strings.Split(templateText, "\n") {
		if count.MatchString(line) {
			return "", &types.TemplateAnchorMissingError{
				Template: TemplateName,
				Anchor:   vars.Variable,
				Reason:   types.AnchorAlreadyPatched,
			}
		}
	}

	tmpl, err := template.Parse(TemplateName, templateText, template.HoleSpec{
		Name:      hole,
		Anchor:    vars.Variable,
		Match:     pattern.MatchString,
		Placement: template.Replace,
	})
	if err != nil {
		return "", err
	}

	anchor := tmpl.Lines[tmpl.Anchor(hole)].Text
	op := pattern.FindStringSubmatch(anchor)[1]

	artifacts := ArtifactNames(vars, set)
	list := strings.TrimRight(fmt.Sprintf("%s %s %s", vars.Variable, op, strings.Join(artifacts, " ")), " ")

	lines := []string{
		list,
		fmt.Sprintf("%s = %d", vars.CountVariable, set.Len()),
		fmt.Sprintf("%s = %d", vars.MaxNameVariable, cfg.Layout.MaxNameLength),
		fmt.Sprintf("%s = %s", vars.PlatformVariable, vars.PlatformValue),
	}

	logging.BuildVarsDebug("replacing %q with %d artifacts", strings.TrimSpace(anchor), len(artifacts))
	return tmpl.Render(map[string][]string{hole: lines}), nil
}
