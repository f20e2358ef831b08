// Package diff computes line diffs between a generated artifact and the copy
// already on disk, using the sergi/go-diff library.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line represents a single line in the diff
type Line struct {
	Content string
	Type    LineType
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
	IsNew   bool
}

// Changed reports whether the two contents differ.
func (d *FileDiff) Changed() bool {
	return len(d.Hunks) > 0
}

// Engine provides diff computation.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates a new diff engine with the default context.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact diffs; generated files are small
	return &Engine{dmp: dmp, context: DefaultContext}
}

// ComputeDiff creates a FileDiff from old and new content strings.
func (e *Engine) ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{OldPath: oldPath, NewPath: newPath, IsNew: oldContent == ""}
	if oldContent == newContent {
		return fd
	}

	// line-level reduction avoids hunks that split inside a line
	a, b, lineArray := linesToRunes(oldContent, newContent)
	diffs := e.dmp.DiffMainRunes(a, b, false)

	fd.Hunks = group(toLines(diffs, lineArray), e.context)
	return fd
}

// ComputeDiff is a convenience function using a fresh engine.
func ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return NewEngine().ComputeDiff(oldPath, newPath, oldContent, newContent)
}

// linesToRunes encodes every distinct line as one rune so the diff runs over
// whole lines. Index 0 is unused and the surrogate block is skipped.
func linesToRunes(oldContent, newContent string) ([]rune, []rune, []string) {
	lineArray := []string{""}
	index := make(map[string]rune)

	encode := func(text string) []rune {
		var out []rune
		for len(text) > 0 {
			end := strings.IndexByte(text, '\n') + 1
			if end == 0 {
				end = len(text)
			}
			line := text[:end]
			text = text[end:]

			r, ok := index[line]
			if !ok {
				r = lineRune(len(lineArray))
				index[line] = r
				lineArray = append(lineArray, line)
			}
			out = append(out, r)
		}
		return out
	}

	return encode(oldContent), encode(newContent), lineArray
}

func lineRune(i int) rune {
	r := rune(i)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

func runeLine(r rune) int {
	if r >= 0xE000 {
		r -= 0x800
	}
	return int(r)
}

func toLines(diffs []diffmatchpatch.Diff, lineArray []string) []Line {
	var lines []Line
	for _, d := range diffs {
		typ := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		for _, r := range d.Text {
			content := strings.TrimSuffix(lineArray[runeLine(r)], "\n")
			lines = append(lines, Line{Content: content, Type: typ})
		}
	}
	return lines
}

// group splits lines into hunks, merging changes closer than 2*context lines.
func group(lines []Line, context int) []Hunk {
	oldPos := make([]int, len(lines)+1)
	newPos := make([]int, len(lines)+1)
	for i, l := range lines {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if l.Type != LineAdded {
			oldPos[i+1]++
		}
		if l.Type != LineRemoved {
			newPos[i+1]++
		}
	}

	type span struct{ start, end int }
	var spans []span
	for i, l := range lines {
		if l.Type == LineContext {
			continue
		}
		start, end := max(0, i-context), min(len(lines), i+context+1)
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = end
			continue
		}
		spans = append(spans, span{start, end})
	}

	hunks := make([]Hunk, 0, len(spans))
	for _, s := range spans {
		h := Hunk{
			OldStart: oldPos[s.start] + 1,
			NewStart: newPos[s.start] + 1,
			OldCount: oldPos[s.end] - oldPos[s.start],
			NewCount: newPos[s.end] - newPos[s.start],
			Lines:    append([]Line(nil), lines[s.start:s.end]...),
		}
		// unified format numbers an empty side by the line before it
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
	}
	return hunks
}

// Unified renders d in unified diff format.
func Unified(d *FileDiff) string {
	if !d.Changed() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", d.OldPath, d.NewPath)
	for _, h := range d.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				b.WriteByte('+')
			case LineRemoved:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
