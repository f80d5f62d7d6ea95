package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
	"wiring-tracer/pkg/geometry"
)

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		t.Run(lvl, func(t *testing.T) {
			log, err := NewLogger(config.LoggingConfig{Level: lvl})
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}

	t.Run("JSON", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "info", JSON: true})
		assert.NoError(t, err)
	})

	t.Run("Unknown level", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"merge", "wires", "ocr", "ports", "stitch", "detect", "refine", "run", "query", "export", "discover"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestExportAndQuery(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	cfgPath := filepath.Join(dir, "pipeline.yaml")
	exports := filepath.Join(dir, "exports")
	yml := "paths:\n  processed: " + processed + "\n  exports: " + exports + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yml), 0o644))

	l := record.NewLayout(processed, "", exports)
	g := circuit.New("doc", 1)
	g.AddNode(&circuit.Node{
		ID:   "comp:c1",
		Data: &circuit.ComponentData{CompID: "c1", Type: "mcb", BBox: geometry.NewBBox(0, 0, 4, 4), LabelsContext: []string{"MCB 16A"}},
	})
	require.NoError(t, circuit.Save(l.GraphPath("doc", 1), g))

	t.Cleanup(func() { configPaths = nil })

	rootCmd.SetArgs([]string{"export", "--config", cfgPath, "--pdf", "doc", "--format", "csv"})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, l.ComponentsCSVPath("doc", 1))

	rootCmd.SetArgs([]string{"query", "find", "mcb", "--config", cfgPath, "--pdf", "doc", "--save", "mcbs"})
	require.NoError(t, rootCmd.Execute())
	var matches []map[string]any
	require.NoError(t, record.ReadJSON(l.QueryPath("doc", 1, "mcbs"), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "comp:c1", matches[0]["id"])
}
