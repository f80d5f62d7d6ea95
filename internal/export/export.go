// Package export writes secondary renditions of a circuit graph.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/graph/encoding/dot"

	"wiring-tracer/internal/circuit"
)

// DOT renders g in Graphviz format.
func DOT(g *circuit.Graph) ([]byte, error) {
	name := strings.TrimSpace(g.PDF)
	if name != "" {
		name = strconv.Quote(name + " page " + strconv.Itoa(g.Page))
	}
	b, err := dot.Marshal(circuit.NewView(g), name, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal dot")
	}
	return b, nil
}

// WriteDOT writes the DOT rendition of g to path.
func WriteDOT(path string, g *circuit.Graph) error {
	b, err := DOT(g)
	if err != nil {
		return err
	}
	return writeFile(path, append(b, '\n'))
}

// ComponentColumns is the header of the components CSV.
var ComponentColumns = []string{
	"id", "type", "confidence", "net_id", "net_phase", "net_voltage",
	"bbox_x0", "bbox_y0", "bbox_x1", "bbox_y1", "width", "height", "area",
	"labels_context",
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ComponentRows returns one CSV row per component node, in node order.
func ComponentRows(g *circuit.Graph) [][]string {
	var rows [][]string
	for _, n := range g.NodesOfKind(circuit.KindComponent) {
		c := n.Component()
		w := max(0, c.BBox.Width())
		h := max(0, c.BBox.Height())

		var net, phase, volt string
		if n.Net.NetID != nil {
			net = strconv.Itoa(*n.Net.NetID)
		}
		if n.Net.Phase != nil {
			phase = *n.Net.Phase
		}
		if n.Net.Voltage != nil {
			volt = strconv.Itoa(*n.Net.Voltage)
		}

		rows = append(rows, []string{
			n.ID, c.Type, ff(c.Confidence), net, phase, volt,
			ff(c.BBox.X1), ff(c.BBox.Y1), ff(c.BBox.X2), ff(c.BBox.Y2),
			ff(w), ff(h), ff(w * h),
			strings.Join(c.LabelsContext, " | "),
		})
	}
	return rows
}

// WriteComponentsCSV writes the components table of g to path.
func WriteComponentsCSV(path string, g *circuit.Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ComponentColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := w.WriteAll(ComponentRows(g)); err != nil {
		return eris.Wrap(err, "export: write csv rows")
	}
	return f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
