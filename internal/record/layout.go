package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// MissingInputError reports that a stage's required upstream file is absent.
type MissingInputError struct {
	What string
	Path string
	Hint string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing %s (%s), run %s first", e.What, e.Path, e.Hint)
}

// IsMissingInput reports whether err wraps a MissingInputError.
func IsMissingInput(err error) bool {
	var mi *MissingInputError
	return errors.As(err, &mi)
}

// Layout resolves page-scoped record paths under the processed and raw roots.
type Layout struct {
	Processed string
	Raw       string
	Exports   string
}

// NewLayout creates a Layout. An empty exports root defaults to <processed>/exports.
func NewLayout(processed, raw, exports string) Layout {
	if exports == "" {
		exports = filepath.Join(processed, "exports")
	}
	return Layout{Processed: processed, Raw: raw, Exports: exports}
}

func pageFile(page int, suffix string) string {
	return fmt.Sprintf("page-%d%s", page, suffix)
}

func (l Layout) CandidatesIndex() string {
	return filepath.Join(l.Processed, "components", "candidates.index.json")
}

func (l Layout) MergedDir() string {
	return filepath.Join(l.Processed, "components", "merged")
}

func (l Layout) MergedIndex() string {
	return filepath.Join(l.MergedDir(), "merged.index.json")
}

// ComponentPath is the per-component record path; disambiguator is the
// last segment of the component id.
func (l Layout) ComponentPath(pdf string, page int, disambiguator string) string {
	return filepath.Join(l.MergedDir(), pdf, pageFile(page, ""), "comp_"+disambiguator+".json")
}

func (l Layout) WiresPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "wires", pdf, pageFile(page, ".json"))
}

func (l Layout) TextPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "vector_text", pdf, pageFile(page, ".json"))
}

// TextDir holds all text-token pages of one document.
func (l Layout) TextDir(pdf string) string {
	return filepath.Join(l.Processed, "vector_text", pdf)
}

func (l Layout) PortsPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "ports", pdf, pageFile(page, ".json"))
}

func (l Layout) GraphPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "graphs", pdf, pageFile(page, ".json"))
}

func (l Layout) GraphDOTPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "graphs", pdf, pageFile(page, ".dot"))
}

func (l Layout) RefinedGraphPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "graphs_refined", pdf, pageFile(page, ".json"))
}

// CurrentGraphPath prefers the refined graph when one exists.
func (l Layout) CurrentGraphPath(pdf string, page int) string {
	if p := l.RefinedGraphPath(pdf, page); Exists(p) {
		return p
	}
	return l.GraphPath(pdf, page)
}

func (l Layout) NetsPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "nets", pdf, pageFile(page, ".json"))
}

func (l Layout) ViolationsPath(pdf string, page int) string {
	return filepath.Join(l.Processed, "refine", pdf, pageFile(page, ".violations.json"))
}

func (l Layout) QueryPath(pdf string, page int, name string) string {
	return filepath.Join(l.Processed, "queries", pdf, pageFile(page, "."+name+".json"))
}

func (l Layout) ComponentsCSVPath(pdf string, page int) string {
	return filepath.Join(l.Exports, pdf, fmt.Sprintf("components_page-%d.csv", page))
}

func (l Layout) ManifestPath(pdf string) string {
	return filepath.Join(l.Raw, "manifests", pdf+".json")
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the named files. Files that do not exist are skipped.
func Remove(paths ...string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "failed to remove %s", path)
		}
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

// ReadRequired decodes path into v, returning a MissingInputError when the
// file does not exist.
func ReadRequired(path, what, hint string, v any) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &MissingInputError{What: what, Path: path, Hint: hint}
	}
	return ReadJSON(path, v)
}

// WriteJSON encodes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "failed to create directory for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "failed to encode %s", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// resolve makes an index path usable: paths that do not exist as given are
// taken relative to the processed root.
func (l Layout) resolve(path string) string {
	if filepath.IsAbs(path) || Exists(path) {
		return path
	}
	return filepath.Join(l.Processed, path)
}

// LoadComponents reads every merged component of one page, ordered by id.
func (l Layout) LoadComponents(pdf string, page int) ([]Component, error) {
	var index []ComponentIndexEntry
	if err := ReadRequired(l.MergedIndex(), "merged-component index", "merge", &index); err != nil {
		return nil, err
	}
	var comps []Component
	for _, e := range index {
		if e.PDF != pdf || e.Page != page {
			continue
		}
		var c Component
		if err := ReadJSON(l.resolve(e.Path), &c); err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	sort.SliceStable(comps, func(i, j int) bool { return IDLess(comps[i].ID, comps[j].ID) })
	return comps, nil
}

// LoadText reads the text tokens of one page. A missing file yields no tokens.
func (l Layout) LoadText(pdf string, page int) ([]TextToken, error) {
	path := l.TextPath(pdf, page)
	if !Exists(path) {
		return nil, nil
	}
	var tokens []TextToken
	if err := ReadJSON(path, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// LoadManifest reads the raster manifest of one document.
func (l Layout) LoadManifest(pdf string) (*Manifest, error) {
	var m Manifest
	if err := ReadRequired(l.ManifestPath(pdf), "page manifest", "ingest", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PagePNG returns the raster path of a page from the document manifest.
func (l Layout) PagePNG(pdf string, page int) (string, error) {
	m, err := l.LoadManifest(pdf)
	if err != nil {
		return "", err
	}
	for _, p := range m.Pages {
		if p.Page == page {
			return p.PNG, nil
		}
	}
	return "", eris.Errorf("page %d not found in manifest %s", page, l.ManifestPath(pdf))
}
