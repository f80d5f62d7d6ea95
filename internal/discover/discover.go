// Package discover mines page text for phrases that could seed a constraints
// pack: words around supply and load anchors, and device type clues.
package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"wiring-tracer/internal/config"
	"wiring-tracer/internal/record"
)

var (
	tokenPattern = regexp.MustCompile(`[A-Za-z0-9\-_/.]+`)
	sourceAnchor = regexp.MustCompile(`(?i)\b(from|input|incoming|incomer|supply|mains|utility)\b`)
	loadAnchor   = regexp.MustCompile(`(?i)\b(to|out|output|feeder|outgoing)\b`)
	numericOnly  = regexp.MustCompile(`^[0-9\-_/.]+$`)
)

// DeviceClues are the device keys counted in page text.
var DeviceClues = []string{
	"MCCB", "MCB", "RCCB", "RCD", "ELCB", "Isolator", "TPN", "SPD", "ACCL", "ATS", "Selector", "TB", "CTS",
}

// anchorWindow is the number of characters taken either side of an anchor.
const anchorWindow = 80

// DefaultTopK bounds the number of phrases suggested per list.
const DefaultTopK = 30

// counter counts keys and remembers first-seen order for ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter { return &counter{counts: make(map[string]int)} }

func (c *counter) add(k string) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// mostCommon returns keys by descending count, first seen first on ties.
func (c *counter) mostCommon() []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	return keys
}

// Suggestion is the constraints pack fragment written for review. Phrases
// land in generic_source_phrases until someone sorts them into categories.
type Suggestion struct {
	Inference config.InferenceConstraints `yaml:"inference"`
}

// Result is the outcome of Analyze.
type Result struct {
	Suggestion   Suggestion
	SourcesFound int
	LoadsFound   int
	DeviceClues  []string
}

func ngrams(tokens []string, n int) []string {
	var out []string
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

func countWindows(text string, anchor *regexp.Regexp, c *counter) {
	for _, m := range anchor.FindAllStringIndex(text, -1) {
		start := max(0, m[0]-anchorWindow)
		end := min(len(text), m[1]+anchorWindow)
		window := tokenPattern.FindAllString(text[start:end], -1)
		for n := 1; n <= 3; n++ {
			for _, g := range ngrams(window, n) {
				c.add(g)
			}
		}
	}
}

func clean(keys []string, topK int) []string {
	out := []string{}
	for _, k := range keys {
		if len(k) < 2 || numericOnly.MatchString(k) {
			continue
		}
		out = append(out, k)
		if len(out) == topK {
			break
		}
	}
	return out
}

// PageText orders tokens top to bottom then left to right and joins them.
func PageText(tokens []record.TextToken) string {
	sorted := append([]record.TextToken(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	lines := make([]string, len(sorted))
	for i, t := range sorted {
		lines[i] = t.Text
	}
	return strings.Join(lines, " | ")
}

// Analyze counts anchors and clues across pages of tokens.
func Analyze(pages [][]record.TextToken, topK int) Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	src, load, dev := newCounter(), newCounter(), newCounter()

	for _, tokens := range pages {
		text := PageText(tokens)
		for _, tok := range tokenPattern.FindAllString(text, -1) {
			low := strings.ToLower(tok)
			for _, key := range DeviceClues {
				if strings.Contains(low, strings.ToLower(key)) {
					dev.add(key)
				}
			}
		}
		countWindows(text, sourceAnchor, src)
		countWindows(text, loadAnchor, load)
	}

	srcTop := clean(src.mostCommon(), topK)
	loadTop := clean(load.mostCommon(), topK)
	devTop := dev.mostCommon()

	hints := make(map[string][]string, len(devTop))
	for _, k := range devTop {
		hints[k] = []string{k}
	}
	return Result{
		Suggestion: Suggestion{Inference: config.InferenceConstraints{
			SourceKeywords: map[string][]string{
				"grid":                   {},
				"dg":                     {},
				"pv":                     {},
				"ups":                    {},
				"generic_source_phrases": srcTop,
			},
			LoadKeywords:        loadTop,
			TypingHintsContains: hints,
		}},
		SourcesFound: len(srcTop),
		LoadsFound:   len(loadTop),
		DeviceClues:  devTop,
	}
}

// Pages lists the page numbers that have a text token record for pdf.
func Pages(l record.Layout, pdf string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(l.TextDir(pdf), "page-*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "discover: list text pages")
	}
	var pages []int
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		n, err := strconv.Atoi(strings.TrimPrefix(name, "page-"))
		if err != nil {
			continue
		}
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

// Discover analyzes the text tokens of the given pages of pdf, or of every
// page with tokens when pages is empty.
func Discover(l record.Layout, pdf string, pages []int, topK int) (Result, error) {
	if len(pages) == 0 {
		var err error
		if pages, err = Pages(l, pdf); err != nil {
			return Result{}, err
		}
	}
	all := make([][]record.TextToken, 0, len(pages))
	for _, p := range pages {
		tokens, err := l.LoadText(pdf, p)
		if err != nil {
			return Result{}, eris.Wrapf(err, "discover: page %d", p)
		}
		all = append(all, tokens)
	}
	return Analyze(all, topK), nil
}

// SuggestionPath is the default output path for a document's suggestion.
func SuggestionPath(root, pdf string) string {
	return filepath.Join(root, "configs", "constraints", "projects", "suggested_"+pdf+".yaml")
}

// Write stores s as YAML at path.
func Write(path string, s Suggestion) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "discover: encode suggestion")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "discover: create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "discover: write %s", path)
	}
	return nil
}
