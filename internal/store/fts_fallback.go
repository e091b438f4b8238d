//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the drafts.body column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Body is already stored in the drafts table.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// SearchDrafts performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchDrafts(query string, limit int) ([]DraftHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT path, title, substr(body, 1, 200)
		FROM drafts
		WHERE title LIKE ? OR body LIKE ?
		ORDER BY path
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search drafts: %w", err)
	}
	defer rows.Close()

	var out []DraftHit
	for rows.Next() {
		var h DraftHit
		if err := rows.Scan(&h.Path, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
