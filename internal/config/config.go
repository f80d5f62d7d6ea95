// Package config loads the pipeline configuration and constraint packs.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config is the full, immutable pipeline configuration. Stages receive it
// explicitly; nothing reads configuration from package state.
type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	Logging     LoggingConfig     `yaml:"logging"`
	Merge       MergeConfig       `yaml:"merge"`
	Geometry    GeometryConfig    `yaml:"geometry"`
	Graph       GraphConfig       `yaml:"graph"`
	Constraints ConstraintsConfig `yaml:"constraints"`
	Refine      RefineConfig      `yaml:"refine"`
	OCR         OCRConfig         `yaml:"ocr"`
	Store       StoreConfig       `yaml:"store"`
	Workers     int               `yaml:"workers"`
}

type PathsConfig struct {
	Processed string `yaml:"processed"`
	Raw       string `yaml:"raw"`
	Exports   string `yaml:"exports"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MergeConfig tunes candidate clustering.
type MergeConfig struct {
	IoUThreshold     float64 `yaml:"iou_threshold"`
	TouchPx          float64 `yaml:"touch_px"`
	PreferHigherConf bool    `yaml:"prefer_higher_conf"`
	UnionBBox        bool    `yaml:"union_bbox"`
}

type GeometryConfig struct {
	Binarize    BinarizeConfig   `yaml:"binarize"`
	Skeletonize bool             `yaml:"skeletonize"`
	Hough       HoughConfig      `yaml:"hough"`
	MergeLines  MergeLinesConfig `yaml:"merge_lines"`
	Snap        SnapConfig       `yaml:"snap"`
}

type BinarizeConfig struct {
	BlockSize int     `yaml:"blocksize"`
	C         float32 `yaml:"C"`
}

type HoughConfig struct {
	Threshold     int `yaml:"threshold"`
	MinLineLength int `yaml:"min_line_length"`
	MaxLineGap    int `yaml:"max_line_gap"`
}

type MergeLinesConfig struct {
	AngleDegEps   float64 `yaml:"angle_deg_eps"`
	EndpointPxEps float64 `yaml:"endpoint_px_eps"`
}

// SnapConfig controls junction clustering and endpoint-to-component snapping.
type SnapConfig struct {
	SnapPx       float64 `yaml:"snap_px"`
	JunctionPx   float64 `yaml:"junction_px"`
	PortDedupePx float64 `yaml:"port_dedupe_px"`
}

type GraphConfig struct {
	PhaseLabel PhaseLabelConfig `yaml:"phase_label"`
	Export     ExportConfig     `yaml:"export"`
}

type PhaseLabelConfig struct {
	SearchRadiusPx float64 `yaml:"search_radius_px"`
	MinTokenVotes  int     `yaml:"min_token_votes"`
}

type ExportConfig struct {
	WriteDOT bool `yaml:"write_dot"`
	WriteCSV bool `yaml:"write_csv"`
}

// ConstraintsConfig is the rule-engine configuration, usually supplied as a
// separate constraints pack.
type ConstraintsConfig struct {
	Nets       NetsConstraints      `yaml:"nets"`
	Inference  InferenceConstraints `yaml:"inference"`
	Components ComponentConstraints `yaml:"components"`
	Rules      RuleToggles          `yaml:"rules"`
}

type NetsConstraints struct {
	MaxNodesWarning int `yaml:"max_nodes_warning"`
	MaxNodesError   int `yaml:"max_nodes_error"`
}

type InferenceConstraints struct {
	// SourceKeywords maps a source category (grid, dg, pv, ups, ...) to regexes.
	SourceKeywords map[string][]string `yaml:"source_keywords"`
	// TypingHintsContains maps a device tag to substrings that identify it.
	TypingHintsContains map[string][]string `yaml:"typing_hints_contains"`
	LoadKeywords        []string            `yaml:"load_keywords,omitempty"`
}

type ComponentConstraints struct {
	CompositeHeuristics CompositeHeuristics `yaml:"composite_heuristics"`
}

type CompositeHeuristics struct {
	MaxLabelsTokensForDeviceChecks int `yaml:"max_labels_tokens_for_device_checks"`
}

type RuleToggles struct {
	PortOffEdge     bool     `yaml:"port_off_edge"`
	EdgeTolerancePx float64  `yaml:"edge_tolerance_px"`
	RCCBPatterns    []string `yaml:"rccb_patterns"`
}

type RefineConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

type OCRConfig struct {
	Language string `yaml:"language"`
	MinChars int    `yaml:"min_chars"`
}

type StoreConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			Processed: "data/processed",
			Raw:       "data/raw",
			Exports:   "data/exports",
		},
		Logging: LoggingConfig{Level: "info"},
		Merge: MergeConfig{
			IoUThreshold:     0.3,
			TouchPx:          4,
			PreferHigherConf: true,
			UnionBBox:        true,
		},
		Geometry: GeometryConfig{
			Binarize:    BinarizeConfig{BlockSize: 31, C: 10},
			Skeletonize: true,
			Hough:       HoughConfig{Threshold: 50, MinLineLength: 25, MaxLineGap: 4},
			MergeLines:  MergeLinesConfig{AngleDegEps: 3, EndpointPxEps: 6},
			Snap:        SnapConfig{SnapPx: 12, JunctionPx: 6, PortDedupePx: 8},
		},
		Graph: GraphConfig{
			PhaseLabel: PhaseLabelConfig{SearchRadiusPx: 60, MinTokenVotes: 1},
			Export:     ExportConfig{WriteDOT: true, WriteCSV: true},
		},
		Constraints: ConstraintsConfig{
			Nets: NetsConstraints{MaxNodesWarning: 2500, MaxNodesError: 15000},
			Inference: InferenceConstraints{
				SourceKeywords:      map[string][]string{},
				TypingHintsContains: map[string][]string{},
			},
			Components: ComponentConstraints{
				CompositeHeuristics: CompositeHeuristics{MaxLabelsTokensForDeviceChecks: 40},
			},
			Rules: RuleToggles{
				PortOffEdge:     true,
				EdgeTolerancePx: 0.5,
				RCCBPatterns:    []string{"RCCB", "RCD", "ELCB"},
			},
		},
		Refine:  RefineConfig{MaxIterations: 3},
		OCR:     OCRConfig{Language: "eng", MinChars: 1},
		Store:   StoreConfig{SQLitePath: "data/graphs.db"},
		Workers: 4,
	}
}

// Load builds a Config from the defaults, then overlays each YAML file in
// order (later files win), then applies environment overrides. A .env file
// in the working directory is honoured if present.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, eris.Wrapf(err, "config: parse %s", path)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WIRING_PROCESSED_ROOT"); v != "" {
		cfg.Paths.Processed = v
	}
	if v := os.Getenv("WIRING_RAW_ROOT"); v != "" {
		cfg.Paths.Raw = v
	}
	if v := os.Getenv("WIRING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WIRING_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
		cfg.Store.Enabled = true
	}
}

// Validate rejects configurations the stages cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Merge.IoUThreshold < 0 || c.Merge.IoUThreshold > 1:
		return eris.Errorf("config: merge.iou_threshold must be in [0,1], got %v", c.Merge.IoUThreshold)
	case c.Merge.TouchPx < 0:
		return eris.Errorf("config: merge.touch_px must be >= 0, got %v", c.Merge.TouchPx)
	case c.Geometry.Snap.SnapPx < 0 || c.Geometry.Snap.JunctionPx < 0 || c.Geometry.Snap.PortDedupePx < 0:
		return eris.New("config: geometry.snap radii must be >= 0")
	case c.Graph.PhaseLabel.SearchRadiusPx < 0:
		return eris.New("config: graph.phase_label.search_radius_px must be >= 0")
	case c.Constraints.Nets.MaxNodesWarning > c.Constraints.Nets.MaxNodesError:
		return eris.Errorf("config: nets.max_nodes_warning (%d) exceeds max_nodes_error (%d)",
			c.Constraints.Nets.MaxNodesWarning, c.Constraints.Nets.MaxNodesError)
	case c.Refine.MaxIterations < 1:
		return eris.Errorf("config: refine.max_iterations must be >= 1, got %d", c.Refine.MaxIterations)
	case c.Workers < 1:
		return eris.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
