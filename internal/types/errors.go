package types

import (
	"fmt"
	"strings"
)

// MalformedDescriptionError reports bad, missing or duplicate compartment data
// in the system description.
type MalformedDescriptionError struct {
	Compartment string
	Reason      string
	Err         error
}

func (e *MalformedDescriptionError) Error() string {
	var b strings.Builder
	b.WriteString("malformed system description")
	if e.Compartment != "" {
		fmt.Fprintf(&b, ": compartment %q", e.Compartment)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedDescriptionError) Unwrap() error { return e.Err }

// Reasons carried by TemplateAnchorMissingError.
const (
	AnchorMissing        = "missing"
	AnchorDuplicated     = "duplicated"
	AnchorAlreadyPatched = "already patched"
)

// TemplateAnchorMissingError reports a linker or build template whose anchor
// line is absent, repeated, or that has already been patched.
type TemplateAnchorMissingError struct {
	Template string
	Anchor   string
	Count    int
	Reason   string
}

func (e *TemplateAnchorMissingError) Error() string {
	switch e.Reason {
	case AnchorDuplicated:
		return fmt.Sprintf("template %s: anchor %q appears %d times, want exactly one", e.Template, e.Anchor, e.Count)
	case AnchorAlreadyPatched:
		return fmt.Sprintf("template %s: already patched near anchor %q; supply the pristine template", e.Template, e.Anchor)
	default:
		return fmt.Sprintf("template %s: anchor %q not found", e.Template, e.Anchor)
	}
}

// CapacityExceededError reports too many compartments for the ID range, or a
// name too long for the name table.
type CapacityExceededError struct {
	Compartment string
	Limit       int
	Got         int
	Reason      string
}

func (e *CapacityExceededError) Error() string {
	if e.Compartment != "" {
		return fmt.Sprintf("capacity exceeded: compartment %q: %s (limit %d, got %d)", e.Compartment, e.Reason, e.Limit, e.Got)
	}
	return fmt.Sprintf("capacity exceeded: %s (limit %d, got %d)", e.Reason, e.Limit, e.Got)
}

// ExternalToolFailureError reports a compiler, archiver or linker invocation
// that could not run or exited non-zero.
type ExternalToolFailureError struct {
	Compartment string
	Tool        string
	ExitCode    int
	Output      string
	Err         error
}

func (e *ExternalToolFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compartment %q: %s", e.Compartment, e.Tool)
	if e.Err != nil {
		fmt.Fprintf(&b, " failed to run: %v", e.Err)
	} else {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}

func (e *ExternalToolFailureError) Unwrap() error { return e.Err }
