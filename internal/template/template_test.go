package template

import (
	"errors"
	"strings"
	"testing"

	"compartmentalize/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specs() []HoleSpec {
	return []HoleSpec{
		{Name: "top", Anchor: "@TOP@", Placement: Before},
		{Name: "bottom", Anchor: "@BOTTOM@", Placement: After},
	}
}

func TestParse_BindsAnchors(t *testing.T) {
	tmpl, err := Parse("t", "a\n@TOP@\nb\n  /* @BOTTOM@ */\nc\n", specs()...)
	require.NoError(t, err)

	require.Len(t, tmpl.Lines, 5)
	assert.Equal(t, 1, tmpl.Anchor("top"))
	assert.Equal(t, 3, tmpl.Anchor("bottom"))
	assert.Equal(t, -1, tmpl.Anchor("nope"))
}

func TestParse_AnchorErrors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
		anchor string
		count  int
	}{
		{"empty", "", types.AnchorMissing, "@TOP@", 0},
		{"missing bottom", "@TOP@\n", types.AnchorMissing, "@BOTTOM@", 0},
		{"duplicated top", "@TOP@\n@BOTTOM@\n@TOP@\n", types.AnchorDuplicated, "@TOP@", 2},
		{"shared line", "@TOP@ @BOTTOM@\n", types.AnchorDuplicated, "@BOTTOM@", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("t", tt.text, specs()...)
			var anchorErr *types.TemplateAnchorMissingError
			require.True(t, errors.As(err, &anchorErr), "got %v", err)
			assert.Equal(t, tt.reason, anchorErr.Reason)
			assert.Equal(t, tt.anchor, anchorErr.Anchor)
			assert.Equal(t, tt.count, anchorErr.Count)
			assert.Equal(t, "t", anchorErr.Template)
		})
	}
}

func TestRender_Placement(t *testing.T) {
	tmpl, err := Parse("t", "a\n@TOP@\nb\n@BOTTOM@\nc\n", specs()...)
	require.NoError(t, err)

	got := tmpl.Render(map[string][]string{
		"top":    {"t1", "t2"},
		"bottom": {"b1"},
	})

	want := "a\nt1\nt2\n@TOP@\nb\n@BOTTOM@\nb1\nc\n"
	if diff := cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n")); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EmptyFillsKeepTemplate(t *testing.T) {
	text := "a\n@TOP@\n@BOTTOM@\n"
	tmpl, err := Parse("t", text, specs()...)
	require.NoError(t, err)

	assert.Equal(t, text, tmpl.Render(nil))
}

func TestRender_Replace(t *testing.T) {
	tmpl, err := Parse("t", "x\nVAR = @\ny", HoleSpec{
		Name:      "var",
		Anchor:    "VAR",
		Match:     func(line string) bool { return strings.HasPrefix(line, "VAR ") },
		Placement: Replace,
	})
	require.NoError(t, err)

	assert.Equal(t, "x\nVAR = 1\nN = 1\ny", tmpl.Render(map[string][]string{"var": {"VAR = 1", "N = 1"}}))
	assert.Equal(t, "x\ny", tmpl.Render(nil))
}

func TestRender_PreservesCRLFAndMissingTrailingNewline(t *testing.T) {
	tmpl, err := Parse("t", "a\r\n@TOP@\r\n@BOTTOM@", specs()...)
	require.NoError(t, err)

	assert.Equal(t, "a\r\ngen\r\n@TOP@\r\n@BOTTOM@", tmpl.Render(map[string][]string{"top": {"gen"}}))
}

func TestRender_GeneratedLinesUseCRLF(t *testing.T) {
	tmpl, err := Parse("t", "{\r\n@TOP@\r\n@BOTTOM@\r\n}\r\n", specs()...)
	require.NoError(t, err)
	assert.Equal(t, "@TOP@", tmpl.Lines[tmpl.Anchor("top")].Text)

	out := tmpl.Render(map[string][]string{"top": {"a", "b"}, "bottom": {"c"}})
	assert.Equal(t, "{\r\na\r\nb\r\n@TOP@\r\n@BOTTOM@\r\nc\r\n}\r\n", out)
	assert.Equal(t, 0, strings.Count(strings.ReplaceAll(out, "\r\n", ""), "\n"))
}
