// Package store keeps page graph snapshots in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"wiring-tracer/internal/circuit"
)

// SQLiteStore holds graph snapshots keyed by (pdf, page).
type SQLiteStore struct {
	db *sql.DB
}

// Run describes one graph push.
type Run struct {
	ID        string
	PDF       string
	Page      int
	Nodes     int
	Edges     int
	CreatedAt string
}

// Open creates or opens a SQLite database.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create directory for %s", path)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: ping")
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: init schema")
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			pdf TEXT,
			page INTEGER,
			id TEXT,
			seq INTEGER,
			kind TEXT,
			net_id INTEGER,
			attrs JSON,
			PRIMARY KEY (pdf, page, id)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			pdf TEXT,
			page INTEGER,
			u TEXT,
			v TEXT,
			seq INTEGER,
			kind TEXT,
			segments INTEGER,
			PRIMARY KEY (pdf, page, u, v)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			pdf TEXT,
			page INTEGER,
			nodes INTEGER,
			edges INTEGER,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_net ON nodes(pdf, page, net_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// PushGraph replaces the stored snapshot of g's page with g in one
// transaction and records the push as a run.
func (s *SQLiteStore) PushGraph(ctx context.Context, g *circuit.Graph) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		PDF:       g.PDF,
		Page:      g.Page,
		Nodes:     g.NumNodes(),
		Edges:     g.NumEdges(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, eris.Wrap(err, "store: begin")
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM nodes WHERE pdf = ? AND page = ?`,
		`DELETE FROM edges WHERE pdf = ? AND page = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, g.PDF, g.Page); err != nil {
			return Run{}, eris.Wrap(err, "store: clear page")
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (pdf, page, id, seq, kind, net_id, attrs)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pdf, page, id) DO UPDATE SET
			seq=excluded.seq,
			kind=excluded.kind,
			net_id=excluded.net_id,
			attrs=excluded.attrs
	`)
	if err != nil {
		return Run{}, eris.Wrap(err, "store: prepare nodes")
	}
	defer nodeStmt.Close()

	for i, n := range g.Nodes() {
		attrs, err := json.Marshal(n)
		if err != nil {
			return Run{}, eris.Wrapf(err, "store: encode node %s", n.ID)
		}
		var net any
		if n.Net.NetID != nil {
			net = *n.Net.NetID
		}
		if _, err := nodeStmt.ExecContext(ctx, g.PDF, g.Page, n.ID, i, string(n.Kind()), net, attrs); err != nil {
			return Run{}, eris.Wrapf(err, "store: insert node %s", n.ID)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (pdf, page, u, v, seq, kind, segments)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pdf, page, u, v) DO UPDATE SET
			seq=excluded.seq,
			kind=excluded.kind,
			segments=excluded.segments
	`)
	if err != nil {
		return Run{}, eris.Wrap(err, "store: prepare edges")
	}
	defer edgeStmt.Close()

	for i, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, g.PDF, g.Page, e.U, e.V, i, string(e.Kind), e.Segments); err != nil {
			return Run{}, eris.Wrapf(err, "store: insert edge %s-%s", e.U, e.V)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, pdf, page, nodes, edges, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.PDF, run.Page, run.Nodes, run.Edges, run.CreatedAt,
	); err != nil {
		return Run{}, eris.Wrap(err, "store: insert run")
	}

	if err := tx.Commit(); err != nil {
		return Run{}, eris.Wrap(err, "store: commit")
	}
	return run, nil
}

// LoadGraph rebuilds the stored snapshot of one page.
func (s *SQLiteStore) LoadGraph(ctx context.Context, pdf string, page int) (*circuit.Graph, error) {
	g := circuit.New(pdf, page)

	rows, err := s.db.QueryContext(ctx,
		`SELECT attrs FROM nodes WHERE pdf = ? AND page = ? ORDER BY seq`, pdf, page)
	if err != nil {
		return nil, eris.Wrap(err, "store: query nodes")
	}
	defer rows.Close()

	for rows.Next() {
		var attrs []byte
		if err := rows.Scan(&attrs); err != nil {
			return nil, eris.Wrap(err, "store: scan node")
		}
		var n circuit.Node
		if err := json.Unmarshal(attrs, &n); err != nil {
			return nil, eris.Wrap(err, "store: decode node")
		}
		g.AddNode(&n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate nodes")
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT u, v, kind, segments FROM edges WHERE pdf = ? AND page = ? ORDER BY seq`, pdf, page)
	if err != nil {
		return nil, eris.Wrap(err, "store: query edges")
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var u, v, kind string
		var segments int
		if err := edgeRows.Scan(&u, &v, &kind, &segments); err != nil {
			return nil, eris.Wrap(err, "store: scan edge")
		}
		if e := g.AddEdge(u, v, circuit.EdgeKind(kind)); e != nil {
			e.Segments = segments
		}
	}
	return g, eris.Wrap(edgeRows.Err(), "store: iterate edges")
}

// Runs lists the pushes recorded for one page, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context, pdf string, page int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pdf, page, nodes, edges, created_at FROM runs WHERE pdf = ? AND page = ? ORDER BY rowid`, pdf, page)
	if err != nil {
		return nil, eris.Wrap(err, "store: query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.PDF, &r.Page, &r.Nodes, &r.Edges, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate runs")
}
