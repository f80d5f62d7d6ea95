// Package pipeline runs the page stages in order, reading and writing the
// page-scoped records of a record.Layout.
//
// Every stage reads all of its inputs before it writes anything, so a
// missing upstream record leaves no partial output behind. Secondary
// outputs (DOT, CSV, SQLite) are best effort: failures are logged and the
// stage still succeeds.
package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/config"
	"wiring-tracer/internal/export"
	"wiring-tracer/internal/merge"
	"wiring-tracer/internal/netlist"
	"wiring-tracer/internal/ocr"
	"wiring-tracer/internal/phase"
	"wiring-tracer/internal/ports"
	"wiring-tracer/internal/record"
	"wiring-tracer/internal/refine"
	"wiring-tracer/internal/rules"
	"wiring-tracer/internal/store"
	"wiring-tracer/internal/trace"
)

// Pipeline holds the configuration shared by all stages.
type Pipeline struct {
	cfg      *config.Config
	layout   record.Layout
	log      *zap.Logger
	detector *rules.Detector

	storeMu sync.Mutex
}

// New creates a Pipeline. A nil logger discards output.
func New(cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := rules.NewDetector(rules.ParamsFromConfig(cfg.Constraints))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build detector")
	}
	return &Pipeline{
		cfg:      cfg,
		layout:   record.NewLayout(cfg.Paths.Processed, cfg.Paths.Raw, cfg.Paths.Exports),
		log:      log,
		detector: d,
	}, nil
}

// Layout returns the record layout the pipeline reads and writes.
func (p *Pipeline) Layout() record.Layout { return p.layout }

func (p *Pipeline) pageLog(pdf string, page int) *zap.Logger {
	return p.log.With(zap.String("pdf", pdf), zap.Int("page", page))
}

// MergeSummary reports a Merge run.
type MergeSummary struct {
	Candidates int
	Components int
	Pages      int
}

// Merge clusters every candidate of the candidates index into page-level
// components and rewrites the merged index.
func (p *Pipeline) Merge(ctx context.Context) (MergeSummary, error) {
	var cands []record.Candidate
	if path := p.layout.CandidatesIndex(); record.Exists(path) {
		if err := record.ReadJSON(path, &cands); err != nil {
			return MergeSummary{}, eris.Wrap(err, "merge: read candidates")
		}
	} else {
		p.log.Warn("merge: no candidates index, writing an empty merge", zap.String("path", path))
	}

	params := merge.ParamsFromConfig(p.cfg.Merge)
	keys, groups := merge.GroupByPage(cands)

	index := []record.ComponentIndexEntry{}
	sum := MergeSummary{Candidates: len(cands), Pages: len(keys)}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		comps := merge.Page(k.PDF, k.Page, groups[k], params)
		for i, c := range comps {
			path := p.layout.ComponentPath(k.PDF, k.Page, merge.Disambiguator(i+1))
			if err := record.WriteJSON(path, c); err != nil {
				return sum, eris.Wrap(err, "merge: write component")
			}
			index = append(index, record.ComponentIndexEntry{
				PDF: c.PDF, Page: c.Page, Path: path,
				Type: c.Type, Conf: c.Confidence, NSources: c.SourceCount,
			})
		}
		sum.Components += len(comps)
	}

	if err := record.WriteJSON(p.layout.MergedIndex(), index); err != nil {
		return sum, eris.Wrap(err, "merge: write index")
	}
	p.log.Info("merge: done",
		zap.Int("candidates", sum.Candidates),
		zap.Int("components", sum.Components),
		zap.Int("pages", sum.Pages))
	return sum, nil
}

func (p *Pipeline) raster(pdf string, page int, png string) (string, error) {
	if png != "" {
		return png, nil
	}
	return p.layout.PagePNG(pdf, page)
}

// Wires extracts wire polylines from a page raster. An empty png looks the
// raster up in the document manifest.
func (p *Pipeline) Wires(ctx context.Context, pdf string, page int, png string) (record.Wires, error) {
	log := p.pageLog(pdf, page)
	path, err := p.raster(pdf, page, png)
	if err != nil {
		return record.Wires{}, eris.Wrap(err, "wires: locate raster")
	}
	if err := ctx.Err(); err != nil {
		return record.Wires{}, err
	}

	w, err := trace.ExtractFile(path, trace.OptionsFromConfig(p.cfg.Geometry))
	if err != nil {
		return record.Wires{}, eris.Wrap(err, "wires: extract")
	}
	w.PDF = pdf
	w.Page = page

	if err := record.WriteJSON(p.layout.WiresPath(pdf, page), w); err != nil {
		return w, eris.Wrap(err, "wires: write")
	}
	log.Info("wires: done",
		zap.Int("segments", w.NSegmentsRaw),
		zap.Int("polylines", w.NPolylines),
		zap.Int("endpoints", len(w.Endpoints)))
	return w, nil
}

// OCR reads text tokens from a page raster with Tesseract.
func (p *Pipeline) OCR(ctx context.Context, pdf string, page int, png string) ([]record.TextToken, error) {
	log := p.pageLog(pdf, page)
	path, err := p.raster(pdf, page, png)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: locate raster")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(ocr.OptionsFromConfig(p.cfg.OCR))
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	tokens, err := engine.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := record.WriteJSON(p.layout.TextPath(pdf, page), tokens); err != nil {
		return tokens, eris.Wrap(err, "ocr: write tokens")
	}
	log.Info("ocr: done", zap.Int("tokens", len(tokens)))
	return tokens, nil
}

// Ports resolves junctions, ports and connections from a page's wires and
// merged components.
func (p *Pipeline) Ports(ctx context.Context, pdf string, page int) (record.Ports, error) {
	log := p.pageLog(pdf, page)

	var w record.Wires
	if err := record.ReadRequired(p.layout.WiresPath(pdf, page), "wires", "wires", &w); err != nil {
		return record.Ports{}, eris.Wrap(err, "ports: read wires")
	}
	comps, err := p.layout.LoadComponents(pdf, page)
	if err != nil {
		return record.Ports{}, eris.Wrap(err, "ports: read components")
	}
	if err := ctx.Err(); err != nil {
		return record.Ports{}, err
	}

	res := ports.Resolve(pdf, page, w.Endpoints, comps, ports.ParamsFromConfig(p.cfg.Geometry.Snap))
	if err := record.WriteJSON(p.layout.PortsPath(pdf, page), res); err != nil {
		return res, eris.Wrap(err, "ports: write")
	}
	log.Info("ports: done",
		zap.Int("endpoints", len(w.Endpoints)),
		zap.Int("components", len(comps)),
		zap.Int("junctions", len(res.Junctions)),
		zap.Int("ports", len(res.Ports)),
		zap.Int("connections", len(res.Connections)))
	return res, nil
}

// Stitch builds the page graph, assigns nets, infers phase and voltage, and
// writes the graph and nets records plus the configured secondary exports.
func (p *Pipeline) Stitch(ctx context.Context, pdf string, page int) (*circuit.Graph, error) {
	log := p.pageLog(pdf, page)

	comps, err := p.layout.LoadComponents(pdf, page)
	if err != nil {
		return nil, eris.Wrap(err, "stitch: read components")
	}
	var pr record.Ports
	if err := record.ReadRequired(p.layout.PortsPath(pdf, page), "ports", "ports", &pr); err != nil {
		return nil, eris.Wrap(err, "stitch: read ports")
	}
	var w record.Wires
	if err := record.ReadRequired(p.layout.WiresPath(pdf, page), "wires", "wires", &w); err != nil {
		return nil, eris.Wrap(err, "stitch: read wires")
	}
	tokens, err := p.layout.LoadText(pdf, page)
	if err != nil {
		return nil, eris.Wrap(err, "stitch: read text")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := circuit.Build(pdf, page, comps, pr, w)
	count := netlist.Assign(g)
	info := phase.Infer(g, tokens, phase.ParamsFromConfig(p.cfg.Graph.PhaseLabel))
	sums := netlist.Summaries(g)
	phase.Annotate(sums, info)

	if err := circuit.Save(p.layout.GraphPath(pdf, page), g); err != nil {
		return g, eris.Wrap(err, "stitch: write graph")
	}
	nets := record.Nets{PDF: pdf, Page: page, Count: count, Nets: sums}
	if err := record.WriteJSON(p.layout.NetsPath(pdf, page), nets); err != nil {
		return g, eris.Wrap(err, "stitch: write nets")
	}
	// refine output describes the previous graph
	if err := record.Remove(p.layout.RefinedGraphPath(pdf, page), p.layout.ViolationsPath(pdf, page)); err != nil {
		return g, eris.Wrap(err, "stitch: clear refine output")
	}

	p.secondaryExports(ctx, log, g)

	phased := 0
	for _, s := range sums {
		if s.Phase != nil {
			phased++
		}
	}
	log.Info("stitch: done",
		zap.Int("nodes", g.NumNodes()),
		zap.Int("edges", g.NumEdges()),
		zap.Int("nets", count),
		zap.Int("nets_with_phase", phased),
		zap.Int("text_tokens", len(tokens)))
	return g, nil
}

func (p *Pipeline) secondaryExports(ctx context.Context, log *zap.Logger, g *circuit.Graph) {
	if p.cfg.Graph.Export.WriteDOT {
		if err := export.WriteDOT(p.layout.GraphDOTPath(g.PDF, g.Page), g); err != nil {
			log.Warn("stitch: dot export skipped", zap.Error(err))
		}
	}
	if p.cfg.Graph.Export.WriteCSV {
		if err := export.WriteComponentsCSV(p.layout.ComponentsCSVPath(g.PDF, g.Page), g); err != nil {
			log.Warn("stitch: components csv skipped", zap.Error(err))
		}
	}
	p.push(ctx, log, g)
}

// push stores g in the SQLite snapshot database when enabled.
func (p *Pipeline) push(ctx context.Context, log *zap.Logger, g *circuit.Graph) {
	if !p.cfg.Store.Enabled {
		return
	}
	p.storeMu.Lock()
	defer p.storeMu.Unlock()

	s, err := store.Open(p.cfg.Store.SQLitePath)
	if err != nil {
		log.Warn("store: push skipped", zap.Error(err))
		return
	}
	defer s.Close()

	run, err := s.PushGraph(ctx, g)
	if err != nil {
		log.Warn("store: push failed", zap.Error(err))
		return
	}
	log.Debug("store: pushed", zap.String("run_id", run.ID), zap.Int("nodes", run.Nodes))
}

// Detect evaluates the rule catalog on the current graph of a page: the
// refined graph when one exists, else the base graph.
func (p *Pipeline) Detect(ctx context.Context, pdf string, page int) (record.Violations, error) {
	log := p.pageLog(pdf, page)

	g, err := circuit.Load(p.layout.CurrentGraphPath(pdf, page), "stitch")
	if err != nil {
		return record.Violations{}, eris.Wrap(err, "detect: read graph")
	}
	if err := ctx.Err(); err != nil {
		return record.Violations{}, err
	}

	vs := p.detector.Detect(g)
	if err := record.WriteJSON(p.layout.ViolationsPath(pdf, page), vs); err != nil {
		return vs, eris.Wrap(err, "detect: write violations")
	}
	log.Info("detect: done",
		zap.Int("nodes", vs.Stats.Nodes),
		zap.Int("nets", vs.Stats.NetsCount),
		zap.Int("largest_net", vs.Stats.LargestNet),
		zap.Int("violations", len(vs.Violations)))
	return vs, nil
}

// Refine repairs the current graph starting from the violations detected on
// it and writes the refined graph and its remaining violations. Repeated runs
// continue from the refined graph.
func (p *Pipeline) Refine(ctx context.Context, pdf string, page int) (refine.Outcome, error) {
	log := p.pageLog(pdf, page)

	g, err := circuit.Load(p.layout.CurrentGraphPath(pdf, page), "stitch")
	if err != nil {
		return refine.Outcome{}, eris.Wrap(err, "refine: read graph")
	}
	var vs record.Violations
	if err := record.ReadRequired(p.layout.ViolationsPath(pdf, page), "violations", "detect", &vs); err != nil {
		return refine.Outcome{}, eris.Wrap(err, "refine: read violations")
	}
	if err := ctx.Err(); err != nil {
		return refine.Outcome{}, err
	}

	out := refine.Resume(g, p.detector, vs, p.cfg.Refine.MaxIterations)
	if err := circuit.Save(p.layout.RefinedGraphPath(pdf, page), out.Graph); err != nil {
		return out, eris.Wrap(err, "refine: write graph")
	}
	if err := record.WriteJSON(p.layout.ViolationsPath(pdf, page), out.Violations); err != nil {
		return out, eris.Wrap(err, "refine: write violations")
	}
	if out.Fixed > 0 {
		p.push(ctx, log, out.Graph)
	}
	log.Info("refine: done",
		zap.Int("iterations", out.Iterations),
		zap.Int("fixed", out.Fixed),
		zap.Bool("converged", out.Converged),
		zap.Int("violations", len(out.Violations.Violations)))
	return out, nil
}

// RunOptions selects optional stages of RunPage.
type RunOptions struct {
	// OCR reads text tokens from the raster before stitching.
	OCR bool
	// PNG overrides the manifest raster path.
	PNG string
}

// RunPage runs wires, [ocr], ports, stitch, detect and refine for one page.
// The merged component index must already exist.
func (p *Pipeline) RunPage(ctx context.Context, pdf string, page int, opts RunOptions) error {
	if _, err := p.Wires(ctx, pdf, page, opts.PNG); err != nil {
		return err
	}
	if opts.OCR {
		if _, err := p.OCR(ctx, pdf, page, opts.PNG); err != nil {
			return err
		}
	}
	if _, err := p.Ports(ctx, pdf, page); err != nil {
		return err
	}
	if _, err := p.Stitch(ctx, pdf, page); err != nil {
		return err
	}
	if _, err := p.Detect(ctx, pdf, page); err != nil {
		return err
	}
	_, err := p.Refine(ctx, pdf, page)
	return err
}

// RunPages runs RunPage for each page with at most cfg.Workers pages in
// flight. The first failure cancels the remaining pages.
func (p *Pipeline) RunPages(ctx context.Context, pdf string, pages []int, opts RunOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Workers))
	for _, page := range pages {
		g.Go(func() error {
			return eris.Wrapf(p.RunPage(gctx, pdf, page, RunOptions{OCR: opts.OCR}), "page %d", page)
		})
	}
	return g.Wait()
}

// DocumentPages lists the pages of pdf from its manifest.
func (p *Pipeline) DocumentPages(pdf string) ([]int, error) {
	m, err := p.layout.LoadManifest(pdf)
	if err != nil {
		return nil, err
	}
	pages := make([]int, 0, len(m.Pages))
	for _, mp := range m.Pages {
		pages = append(pages, mp.Page)
	}
	return pages, nil
}
