package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"wiring-tracer/internal/record"
)

func tok(text string, x, y float64) record.TextToken {
	return record.TextToken{Text: text, X: x, Y: y}
}

func TestPageText(t *testing.T) {
	got := PageText([]record.TextToken{tok("b", 5, 10), tok("c", 0, 20), tok("a", 0, 10)})
	assert.Equal(t, "a | b | c", got)
}

func TestCounter_MostCommon(t *testing.T) {
	c := newCounter()
	for _, k := range []string{"x", "y", "z", "y", "z"} {
		c.add(k)
	}
	assert.Equal(t, []string{"y", "z", "x"}, c.mostCommon())
}

func TestAnalyze(t *testing.T) {
	page := []record.TextToken{
		tok("Incoming Mains", 0, 0),
		tok("415", 80, 0),
		tok("MCB", 0, 10),
		tok("RCCB", 50, 10),
		tok("Outgoing Feeder", 0, 20),
	}

	res := Analyze([][]record.TextToken{page}, 3)
	inf := res.Suggestion.Inference

	assert.Equal(t, []string{"Incoming", "Mains", "MCB"}, inf.SourceKeywords["generic_source_phrases"])
	assert.Equal(t, 3, res.SourcesFound)
	assert.NotContains(t, inf.LoadKeywords, "415")
	assert.Len(t, inf.LoadKeywords, 3)

	assert.Equal(t, []string{"MCB", "RCCB"}, res.DeviceClues)
	assert.Equal(t, map[string][]string{"MCB": {"MCB"}, "RCCB": {"RCCB"}}, inf.TypingHintsContains)

	for _, cat := range []string{"grid", "dg", "pv", "ups"} {
		assert.Contains(t, inf.SourceKeywords, cat)
	}

	t.Run("No anchors", func(t *testing.T) {
		res := Analyze([][]record.TextToken{{tok("MCCB 63A", 0, 0)}}, 0)
		assert.Empty(t, res.Suggestion.Inference.SourceKeywords["generic_source_phrases"])
		assert.Equal(t, []string{"MCCB"}, res.DeviceClues)
	})
}

func TestDiscoverAndWrite(t *testing.T) {
	dir := t.TempDir()
	l := record.NewLayout(dir, "", "")
	require.NoError(t, record.WriteJSON(l.TextPath("doc", 2), []record.TextToken{tok("Supply from DG", 0, 0)}))
	require.NoError(t, record.WriteJSON(l.TextPath("doc", 1), []record.TextToken{tok("Incomer ATS", 0, 0)}))

	pages, err := Pages(l, "doc")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pages)

	res, err := Discover(l, "doc", nil, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATS"}, res.DeviceClues)

	out := SuggestionPath(dir, "doc")
	require.NoError(t, Write(out, res.Suggestion))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var back Suggestion
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, res.Suggestion.Inference.TypingHintsContains, back.Inference.TypingHintsContains)
	assert.Equal(t, filepath.Join(dir, "configs", "constraints", "projects", "suggested_doc.yaml"), out)
}
