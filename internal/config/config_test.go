package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_OverlaysInOrder(t *testing.T) {
	dir := t.TempDir()
	pipeline := writeFile(t, dir, "pipeline.yaml", `
merge:
  iou_threshold: 0.5
  touch_px: 2
geometry:
  snap:
    snap_px: 9
`)
	constraints := writeFile(t, dir, "constraints.yaml", `
constraints:
  nets:
    max_nodes_warning: 10
    max_nodes_error: 20
  inference:
    source_keywords:
      grid: ["(?i)\\bgrid\\b", "(?i)mains"]
      dg: ["(?i)\\bd\\.?g\\.?\\b"]
    typing_hints_contains:
      ATS: ["ats", "auto transfer"]
  components:
    composite_heuristics:
      max_labels_tokens_for_device_checks: 12
merge:
  touch_px: 3
`)

	cfg, err := Load(pipeline, constraints)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Merge.IoUThreshold)
	assert.Equal(t, 3.0, cfg.Merge.TouchPx, "later file wins")
	assert.True(t, cfg.Merge.UnionBBox, "unset keys keep defaults")
	assert.Equal(t, 9.0, cfg.Geometry.Snap.SnapPx)
	assert.Equal(t, 6.0, cfg.Geometry.Snap.JunctionPx)
	assert.Equal(t, 10, cfg.Constraints.Nets.MaxNodesWarning)
	assert.Equal(t, 20, cfg.Constraints.Nets.MaxNodesError)
	assert.Len(t, cfg.Constraints.Inference.SourceKeywords["grid"], 2)
	assert.Equal(t, []string{"ats", "auto transfer"}, cfg.Constraints.Inference.TypingHintsContains["ATS"])
	assert.Equal(t, 12, cfg.Constraints.Components.CompositeHeuristics.MaxLabelsTokensForDeviceChecks)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WIRING_PROCESSED_ROOT", "/tmp/processed")
	t.Setenv("WIRING_SQLITE_PATH", "/tmp/g.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/processed", cfg.Paths.Processed)
	assert.Equal(t, "/tmp/g.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Store.Enabled)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"iou out of range": func(c *Config) { c.Merge.IoUThreshold = 1.5 },
		"negative snap":    func(c *Config) { c.Geometry.Snap.SnapPx = -1 },
		"warn above error": func(c *Config) { c.Constraints.Nets.MaxNodesWarning = c.Constraints.Nets.MaxNodesError + 1 },
		"zero iterations":  func(c *Config) { c.Refine.MaxIterations = 0 },
		"zero workers":     func(c *Config) { c.Workers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	def := Default()
	assert.NoError(t, def.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
