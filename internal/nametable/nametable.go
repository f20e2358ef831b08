// Package nametable renders the C table the firmware's compartment-switch
// handler uses to map a compartment ID back to its name.
package nametable

import (
	"fmt"
	"strings"

	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/types"
)

const banner = "/* Generated by compartmentalize. Do not edit. */"

// MaxLen returns the longest name that fits a row.
func MaxLen(cfg *config.Config) int {
	if cfg.NameTable.NulTerminated {
		return cfg.Layout.MaxNameLength - 1
	}
	return cfg.Layout.MaxNameLength
}

// Generate renders one row per compartment in ordinal order. Rows are
// MaxNameLength bytes wide; a longer name is a *types.CapacityExceededError.
func Generate(cfg *config.Config, set *types.CompartmentSet) (string, error) {
	width := cfg.Layout.MaxNameLength
	limit := MaxLen(cfg)

	for _, c := range set.All() {
		if len(c.Name) > limit {
			return "", &types.CapacityExceededError{
				Compartment: c.Name,
				Limit:       limit,
				Got:         len(c.Name),
				Reason:      "name too long for the name table",
			}
		}
	}

	var b strings.Builder
	b.WriteString(banner)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "char %s[%d][%d] = {\n", cfg.NameTable.Symbol, set.Len(), width)
	for _, c := range set.All() {
		fmt.Fprintf(&b, "\t\"%s\",\n", escape(c.Name))
	}
	b.WriteString("};\n")

	logging.NameTableDebug("%s: %d rows of %d bytes", cfg.NameTable.Symbol, set.Len(), width)
	return b.String(), nil
}

// escape renders s as the body of a C string literal. Bytes outside printable
// ASCII become three-digit octal escapes so the byte count is unchanged.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"' || ch == '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case ch < 0x20 || ch >= 0x7f:
			fmt.Fprintf(&b, "\\%03o", ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
