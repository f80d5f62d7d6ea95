package cli

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/discover"
	"wiring-tracer/internal/export"
	"wiring-tracer/internal/query"
	"wiring-tracer/internal/record"
)

func layoutOf(cfg *config.Config) record.Layout {
	return record.NewLayout(cfg.Paths.Processed, cfg.Paths.Raw, cfg.Paths.Exports)
}

func newExportCmd() *cobra.Command {
	var (
		f      pageFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the page graph as DOT or the components table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			l := layoutOf(cfg)
			g, err := query.Load(l, f.pdf, f.page)
			if err != nil {
				return err
			}

			var path string
			switch strings.ToLower(format) {
			case "dot":
				path = l.GraphDOTPath(f.pdf, f.page)
				err = export.WriteDOT(path, g)
			case "csv":
				path = l.ComponentsCSVPath(f.pdf, f.page)
				err = export.WriteComponentsCSV(path, g)
			default:
				return eris.Errorf("unknown format %q (want dot or csv)", format)
			}
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "output format: dot or csv")
	return cmd
}

func newDiscoverCmd() *cobra.Command {
	var (
		pdf   string
		pages []int
		topK  int
		out   string
		root  string
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Suggest constraint keywords from a document's text tokens",
		Long: `Counts phrases around supply and load anchors and device clues in the
text tokens of a document and writes a constraints fragment for review.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := discover.Discover(layoutOf(cfg), pdf, pages, topK)
			if err != nil {
				return err
			}
			if out == "" {
				out = discover.SuggestionPath(root, pdf)
			}
			if err := discover.Write(out, res.Suggestion); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			fmt.Printf("  source phrases: %d\n", res.SourcesFound)
			fmt.Printf("  load phrases:   %d\n", res.LoadsFound)
			fmt.Printf("  device clues:   %s\n", strings.Join(res.DeviceClues, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&pdf, "pdf", "", "document stem")
	cmd.Flags().IntSliceVar(&pages, "page", nil, "page numbers (default: every page with text)")
	cmd.Flags().IntVar(&topK, "top", discover.DefaultTopK, "phrases kept per list")
	cmd.Flags().StringVar(&out, "out", "", "output YAML path")
	cmd.Flags().StringVar(&root, "root", ".", "project root for the default output path")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

func init() {
	rootCmd.AddCommand(newExportCmd(), newDiscoverCmd())
}
