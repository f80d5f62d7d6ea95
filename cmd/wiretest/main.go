// Command wiretest runs wire extraction on a page raster and prints the polylines.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/trace"
)

func main() {
	imagePath := flag.String("image", "", "Path to page raster (PNG, JPEG, TIFF or BMP)")
	configPath := flag.String("config", "", "Optional YAML config")
	noSkeleton := flag.Bool("no-skeleton", false, "Skip morphological thinning")
	limit := flag.Int("limit", 50, "Maximum polylines to print (0 for all)")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: wiretest -image <path> [-config pipeline.yaml] [-no-skeleton] [-limit 50]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	opts := trace.OptionsFromConfig(cfg.Geometry)
	if *noSkeleton {
		opts.Skeletonize = false
	}

	fmt.Printf("Image: %s\n", *imagePath)
	fmt.Printf("\nExtraction parameters:\n")
	fmt.Printf("  Binarize: blocksize=%d C=%.1f\n", opts.BlockSize, opts.C)
	fmt.Printf("  Skeletonize: %v\n", opts.Skeletonize)
	fmt.Printf("  Hough: threshold=%d minLen=%d maxGap=%d\n", opts.HoughThresh, opts.MinLineLength, opts.MaxLineGap)
	fmt.Printf("  Merge: angle=%.1f° endpoint=%.1fpx\n", opts.Merge.AngleDegEps, opts.Merge.EndpointPxEps)

	fmt.Printf("\nExtracting wires...\n")
	w, err := trace.ExtractFile(*imagePath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nRaw segments: %d, merged polylines: %d\n", w.NSegmentsRaw, w.NPolylines)
	fmt.Printf("%-6s %10s %10s %10s %10s %6s\n", "#", "X0", "Y0", "X1", "Y1", "Pts")
	fmt.Println(strings.Repeat("-", 58))

	for i, p := range w.Polylines {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... %d more\n", len(w.Polylines)-i)
			break
		}
		a, b, ok := p.Ends()
		if !ok {
			continue
		}
		fmt.Printf("%-6d %10d %10d %10d %10d %6d\n", i, a.X, a.Y, b.X, b.Y, len(p.Points))
	}

	fmt.Printf("\nTotal: %d endpoints\n", len(w.Endpoints))
}
