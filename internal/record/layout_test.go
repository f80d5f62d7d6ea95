package record

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/pkg/geometry"
)

func TestReadRequired_Missing(t *testing.T) {
	l := NewLayout(t.TempDir(), "", "")
	var w Wires
	err := ReadRequired(l.WiresPath("doc", 2), "wires", "wires", &w)
	require.Error(t, err)
	assert.True(t, IsMissingInput(err))
	assert.Contains(t, err.Error(), "missing wires (")
	assert.Contains(t, err.Error(), "page-2.json), run wires first")
}

func TestLoadComponents_FiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	l := NewLayout(root, "", "")

	write := func(c Component, dis string) ComponentIndexEntry {
		p := l.ComponentPath(c.PDF, c.Page, dis)
		require.NoError(t, WriteJSON(p, c))
		return ComponentIndexEntry{PDF: c.PDF, Page: c.Page, Path: p}
	}
	idx := []ComponentIndexEntry{
		write(Component{ID: "doc:1:comp:0002", PDF: "doc", Page: 1}, "0002"),
		write(Component{ID: "doc:1:comp:0001", PDF: "doc", Page: 1, BBox: geometry.NewBBox(0, 0, 4, 4)}, "0001"),
		write(Component{ID: "doc:2:comp:0001", PDF: "doc", Page: 2}, "0001"),
	}
	require.NoError(t, WriteJSON(l.MergedIndex(), idx))

	comps, err := l.LoadComponents("doc", 1)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "doc:1:comp:0001", comps[0].ID)
	assert.Equal(t, geometry.NewBBox(0, 0, 4, 4), comps[0].BBox)
	assert.Equal(t, "doc:1:comp:0002", comps[1].ID)
}

func TestLoadText_AbsentIsEmpty(t *testing.T) {
	l := NewLayout(t.TempDir(), "", "")
	tokens, err := l.LoadText("doc", 1)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestCurrentGraphPath_PrefersRefined(t *testing.T) {
	l := NewLayout(t.TempDir(), "", "")
	assert.Equal(t, l.GraphPath("doc", 1), l.CurrentGraphPath("doc", 1))

	require.NoError(t, WriteJSON(l.RefinedGraphPath("doc", 1), map[string]any{}))
	assert.Equal(t, l.RefinedGraphPath("doc", 1), l.CurrentGraphPath("doc", 1))
}

func TestRemove(t *testing.T) {
	l := NewLayout(t.TempDir(), "", "")
	require.NoError(t, WriteJSON(l.RefinedGraphPath("doc", 1), map[string]any{}))

	require.NoError(t, Remove(l.RefinedGraphPath("doc", 1), l.ViolationsPath("doc", 1)))
	assert.NoFileExists(t, l.RefinedGraphPath("doc", 1))
	assert.Equal(t, l.GraphPath("doc", 1), l.CurrentGraphPath("doc", 1))
}

func TestPaths(t *testing.T) {
	l := NewLayout("/p", "/r", "")
	assert.Equal(t, filepath.FromSlash("/p/refine/doc/page-3.violations.json"), l.ViolationsPath("doc", 3))
	assert.Equal(t, filepath.FromSlash("/p/exports/doc/components_page-3.csv"), l.ComponentsCSVPath("doc", 3))
	assert.Equal(t, filepath.FromSlash("/r/manifests/doc.json"), l.ManifestPath("doc"))
	assert.Equal(t, filepath.FromSlash("/p/queries/doc/page-1.path.json"), l.QueryPath("doc", 1, "path"))
}
