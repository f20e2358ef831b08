package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiff_NoChanges(t *testing.T) {
	d := ComputeDiff("a", "b", "x\ny\n", "x\ny\n")
	assert.False(t, d.Changed())
	assert.Empty(t, Unified(d))
}

func TestComputeDiff_Addition(t *testing.T) {
	d := ComputeDiff("old", "new", "line1\nline2\nline3\n", "line1\nline2\nline2.5\nline3\n")
	require.Len(t, d.Hunks, 1)

	h := d.Hunks[0]
	assert.Equal(t, 1, h.OldStart)
	assert.Equal(t, 3, h.OldCount)
	assert.Equal(t, 1, h.NewStart)
	assert.Equal(t, 4, h.NewCount)

	want := "--- old\n+++ new\n@@ -1,3 +1,4 @@\n line1\n line2\n+line2.5\n line3\n"
	assert.Equal(t, want, Unified(d))
}

func TestComputeDiff_Deletion(t *testing.T) {
	d := ComputeDiff("old", "new", "a\nb\nc\nd\n", "a\nb\nd\n")
	require.Len(t, d.Hunks, 1)
	assert.Contains(t, Unified(d), "\n-c\n")
	assert.Equal(t, 4, d.Hunks[0].OldCount)
	assert.Equal(t, 3, d.Hunks[0].NewCount)
}

func TestComputeDiff_NewFile(t *testing.T) {
	d := ComputeDiff("old", "new", "", "a\nb\n")
	assert.True(t, d.IsNew)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, 0, d.Hunks[0].OldStart)
	assert.Equal(t, 0, d.Hunks[0].OldCount)
	assert.Equal(t, 2, d.Hunks[0].NewCount)
}

func TestComputeDiff_SeparateHunks(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 30; i++ {
		oldLines = append(oldLines, fmt.Sprintf("line%d", i))
		newLines = append(newLines, fmt.Sprintf("line%d", i))
	}
	newLines[2] = "changed2"
	newLines[25] = "changed25"

	d := ComputeDiff("old", "new", strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")
	require.Len(t, d.Hunks, 2)
	assert.Equal(t, 1, d.Hunks[0].OldStart)
	assert.Equal(t, 23, d.Hunks[1].OldStart)
	assert.Equal(t, 7, d.Hunks[1].OldCount)

	out := Unified(d)
	assert.Contains(t, out, "@@ -1,6 +1,6 @@\n line0\n line1\n-line2\n+changed2\n line3\n")
	assert.Contains(t, out, "@@ -23,7 +23,7 @@\n line22\n line23\n line24\n-line25\n+changed25\n line26\n")
	assert.NotContains(t, out, "+line0")
}

func TestComputeDiff_ManyDistinctLines(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 200; i++ {
		oldLines = append(oldLines, fmt.Sprintf("seg%d PT_LOAD FLAGS(0x%x);", i, 0xF800+i))
	}
	newLines = append(newLines, oldLines[:100]...)
	newLines = append(newLines, "inserted")
	newLines = append(newLines, oldLines[100:]...)
	newLines[150] = "replaced"

	d := ComputeDiff("old", "new", strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")
	require.Len(t, d.Hunks, 2)

	var added, removed []string
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added = append(added, l.Content)
			case LineRemoved:
				removed = append(removed, l.Content)
			}
		}
	}
	assert.Equal(t, []string{"inserted", "replaced"}, added)
	assert.Equal(t, []string{oldLines[149]}, removed)
}

func TestComputeDiff_MissingTrailingNewline(t *testing.T) {
	d := ComputeDiff("old", "new", "a\nb", "a\nb\n")
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "--- old\n+++ new\n@@ -1,2 +1,2 @@\n a\n-b\n+b\n", Unified(d))
}

func TestComputeDiff_NearbyChangesMerge(t *testing.T) {
	d := ComputeDiff("old", "new", "a\nb\nc\nd\ne\nf\n", "A\nb\nc\nd\ne\nF\n")
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, 6, d.Hunks[0].OldCount)
	assert.Equal(t, 6, d.Hunks[0].NewCount)
}
