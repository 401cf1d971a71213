// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/omnithink/internal/mindmap"
)

var (
	ftsOnce sync.Once
	ftsErr  error
)

// ftsSupported returns nil when the linked SQLite has the FTS5 module,
// which the sqlite3 driver only compiles in with the sqlite_fts5 tag.
func ftsSupported() error {
	ftsOnce.Do(func() {
		db, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			ftsErr = err
			return
		}
		defer db.Close()
		_, ftsErr = db.Exec(`CREATE VIRTUAL TABLE fts_check USING fts5(body)`)
	})
	return ftsErr
}

// FTS ranks entries with an in-memory SQLite FTS5 table scored by bm25.
// The sqlite3 driver must be built with the sqlite_fts5 tag.
type FTS struct{}

// Name implements Ranker.
func (FTS) Name() string { return "fts" }

// Build implements Ranker.
func (FTS) Build(ctx context.Context, entries []mindmap.Entry) (Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx,
		`CREATE VIRTUAL TABLE entries_fts USING fts5(node_id UNINDEXED, concept, evidence)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating FTS table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries_fts(node_id, concept, evidence) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	byID := make(map[string]mindmap.Entry, len(entries))
	for _, e := range entries {
		byID[e.NodeID] = e
		if _, err := stmt.ExecContext(ctx, e.NodeID, e.Concept, evidenceText(e)); err != nil {
			stmt.Close()
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("indexing %s: %w", e.NodeID, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("committing index: %w", err)
	}

	return &ftsIndex{db: db, byID: byID}, nil
}

type ftsIndex struct {
	db   *sql.DB
	byID map[string]mindmap.Entry
}

func (x *ftsIndex) TopK(ctx context.Context, query string, k int) ([]Result, error) {
	match := matchExpr(query)
	if match == "" || k <= 0 || len(x.byID) == 0 {
		return nil, nil
	}

	// bm25() is lower-is-better; concept matches weigh double.
	rows, err := x.db.QueryContext(ctx,
		`SELECT node_id, bm25(entries_fts, 0.0, 2.0, 1.0) AS score
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY score`, match)
	if err != nil {
		return nil, fmt.Errorf("querying FTS index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id    string
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if e, ok := x.byID[id]; ok {
			results = append(results, Result{Entry: e, Score: -score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading FTS results: %w", err)
	}
	return sortResults(results, k), nil
}

func (x *ftsIndex) Close() error { return x.db.Close() }

// matchExpr turns free text into an FTS5 OR query of quoted terms, so
// punctuation in section titles cannot break the query syntax.
func matchExpr(query string) string {
	t := terms(query)
	for i := range t {
		t[i] = `"` + strings.ReplaceAll(t[i], `"`, `""`) + `"`
	}
	return strings.Join(t, " OR ")
}
