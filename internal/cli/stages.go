package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wiring-tracer/internal/pipeline"
)

// pageFlags selects one page of one document.
type pageFlags struct {
	pdf  string
	page int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "document stem")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	_ = cmd.MarkFlagRequired("pdf")
}

// stageCmd builds a command that runs one page stage.
func stageCmd(use, short string, run func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error) *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, p, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			return run(cmd.Context(), p, f)
		},
	}
	f.register(cmd)
	return cmd
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge tile candidates into page-level components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, p, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			_, err = p.Merge(cmd.Context())
			return err
		},
	}
}

func newWiresCmd() *cobra.Command {
	var png string
	cmd := stageCmd("wires", "Extract wire polylines from a page raster",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			_, err := p.Wires(ctx, f.pdf, f.page, png)
			return err
		})
	cmd.Flags().StringVar(&png, "png", "", "page raster (default: from the document manifest)")
	return cmd
}

func newOCRCmd() *cobra.Command {
	var png string
	cmd := stageCmd("ocr", "Read text tokens from a page raster with Tesseract",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			_, err := p.OCR(ctx, f.pdf, f.page, png)
			return err
		})
	cmd.Flags().StringVar(&png, "png", "", "page raster (default: from the document manifest)")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return stageCmd("ports", "Resolve junctions, ports and connections",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			_, err := p.Ports(ctx, f.pdf, f.page)
			return err
		})
}

func newStitchCmd() *cobra.Command {
	return stageCmd("stitch", "Build the page graph, assign nets and infer phase",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			_, err := p.Stitch(ctx, f.pdf, f.page)
			return err
		})
}

func newDetectCmd() *cobra.Command {
	return stageCmd("detect", "Check the page graph against the constraints pack",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			vs, err := p.Detect(ctx, f.pdf, f.page)
			if err != nil {
				return err
			}
			for _, v := range vs.Violations {
				fmt.Printf("%-8s %-34s %s\n", v.Severity, v.Type, v.Message)
			}
			return nil
		})
}

func newRefineCmd() *cobra.Command {
	return stageCmd("refine", "Repair flagged port geometry and re-check",
		func(ctx context.Context, p *pipeline.Pipeline, f pageFlags) error {
			_, err := p.Refine(ctx, f.pdf, f.page)
			return err
		})
}

func newRunCmd() *cobra.Command {
	var (
		pdf     string
		pages   []int
		withOCR bool
		doMerge bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every page stage for one or more pages",
		Long: `Runs wires, ports, stitch, detect and refine for each page, optionally
reading text with Tesseract first. Without --page every page listed in the
document manifest is processed. Pages run concurrently up to the configured
worker count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, p, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			if doMerge {
				if _, err := p.Merge(ctx); err != nil {
					return err
				}
			}
			if len(pages) == 0 {
				if pages, err = p.DocumentPages(pdf); err != nil {
					return err
				}
			}
			return p.RunPages(ctx, pdf, pages, pipeline.RunOptions{OCR: withOCR})
		},
	}
	cmd.Flags().StringVar(&pdf, "pdf", "", "document stem")
	cmd.Flags().IntSliceVar(&pages, "page", nil, "page numbers (default: all pages in the manifest)")
	cmd.Flags().BoolVar(&withOCR, "ocr", false, "read text tokens with Tesseract before stitching")
	cmd.Flags().BoolVar(&doMerge, "merge", false, "merge candidates first")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

func init() {
	rootCmd.AddCommand(
		newMergeCmd(),
		newWiresCmd(),
		newOCRCmd(),
		newPortsCmd(),
		newStitchCmd(),
		newDetectCmd(),
		newRefineCmd(),
		newRunCmd(),
	)
}
