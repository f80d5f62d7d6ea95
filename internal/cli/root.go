// Package cli wires the pipeline stages and graph tools into cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/pipeline"
	"wiring-tracer/internal/version"
)

var (
	// Global flags
	configPaths []string
	logLevel    string
	logJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "wiring-tracer",
	Short: "Reconstruct circuit topology from rasterized wiring diagrams",
	Long: `wiring-tracer turns component detections and page rasters of an
electrical wiring diagram into a connectivity graph, assigns nets, infers
phase and voltage from nearby text, and checks the result against a
constraints pack.

Examples:
  wiring-tracer merge                          # Merge tile candidates
  wiring-tracer run --pdf panel --page 1       # Run every page stage
  wiring-tracer detect --pdf panel --page 1    # Re-run the rule checks
  wiring-tracer query path --pdf panel --from "incoming" --to "rccb"`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel the running stages.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configPaths, "config", "c", nil,
		"YAML config file; repeat to overlay a constraints pack")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs")
}

// loadConfig reads the configured files and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPaths...)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logJSON {
		cfg.Logging.JSON = true
	}
	return cfg, nil
}

// NewLogger builds a console or JSON logger at the configured level.
func NewLogger(c config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, eris.Wrapf(err, "cli: bad log level %q", c.Level)
	}

	var zc zap.Config
	if c.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = level
	return zc.Build()
}

// setup loads the configuration and builds the logger and pipeline.
func setup() (*config.Config, *zap.Logger, *pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	zap.ReplaceGlobals(log)

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, p, nil
}
