package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/gaceta/internal/models"
)

// Preferences returns the stored preferences of userID, or defaults.
func (db *DB) Preferences(userID string) (models.Preferences, error) {
	p := models.Preferences{UserID: userID}
	var ack int
	err := db.conn.QueryRow(`SELECT format_warning_ack FROM preferences WHERE user_id = ?`, userID).Scan(&ack)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("store: get preferences: %w", err)
	}
	p.FormatWarningAcknowledged = ack != 0
	return p, nil
}

// AcknowledgeFormatWarning records that userID has seen the format warning.
func (db *DB) AcknowledgeFormatWarning(userID string) error {
	_, err := db.conn.Exec(`
		INSERT INTO preferences (user_id, format_warning_ack, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			format_warning_ack = 1,
			updated_at         = excluded.updated_at
	`, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: acknowledge format warning: %w", err)
	}
	return nil
}

// AddImage records an image; repeated URLs for an article are ignored.
func (db *DB) AddImage(rec models.ImageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Source == "" {
		rec.Source = "upload"
	}
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO images (article_id, url, source, created_at) VALUES (?, ?, ?, ?)
	`, rec.ArticleID, rec.URL, rec.Source, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: add image: %w", err)
	}
	return nil
}

// ReplaceImages sets the images of articleID from source to exactly urls.
func (db *DB) ReplaceImages(articleID, source string, urls []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM images WHERE article_id = ? AND source = ?`, articleID, source); err != nil {
		return fmt.Errorf("store: clear images: %w", err)
	}
	if len(urls) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO images (article_id, url, source, created_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare image insert: %w", err)
		}
		defer stmt.Close()
		now := time.Now().UTC()
		for _, u := range urls {
			if _, err := stmt.Exec(articleID, u, source, now); err != nil {
				return fmt.Errorf("store: insert image: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ImagesFor lists the images recorded for articleID, oldest first.
func (db *DB) ImagesFor(articleID string) ([]models.ImageRecord, error) {
	rows, err := db.conn.Query(`
		SELECT article_id, url, source, created_at FROM images
		WHERE article_id = ? ORDER BY created_at, rowid
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("store: list images: %w", err)
	}
	defer rows.Close()

	var out []models.ImageRecord
	for rows.Next() {
		var r models.ImageRecord
		if err := rows.Scan(&r.ArticleID, &r.URL, &r.Source, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan image: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DraftRow represents a row in the drafts table.
type DraftRow struct {
	Path  string
	Title string
	// Body is the plain text of the normalized draft, for search.
	Body      string
	Checksum  string
	UpdatedAt time.Time
}

// DraftHit is a single draft search result.
type DraftHit struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDraft inserts or replaces a draft's sync state and search entry.
func (db *DB) UpsertDraft(d DraftRow) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO drafts (path, title, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			body       = excluded.body,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Body, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert draft: %w", err)
	}
	if err := ftsUpsert(tx, d.Path, d.Title, d.Body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDraft removes a draft and the images recorded for it.
func (db *DB) DeleteDraft(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM drafts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete draft: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM images WHERE article_id = ? AND source = 'inbox'`, DraftArticleID(path)); err != nil {
		return fmt.Errorf("store: delete draft images: %w", err)
	}
	ftsDelete(tx, path)
	return tx.Commit()
}

// AllChecksums returns path -> checksum for every draft.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM drafts`)
	if err != nil {
		return nil, fmt.Errorf("store: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, fmt.Errorf("store: scan checksum: %w", err)
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListDrafts returns every draft ordered by path.
func (db *DB) ListDrafts() ([]DraftRow, error) {
	rows, err := db.conn.Query(`SELECT path, title, checksum, updated_at FROM drafts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("store: list drafts: %w", err)
	}
	defer rows.Close()

	var out []DraftRow
	for rows.Next() {
		var d DraftRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DraftArticleID is the images.article_id used for an inbox draft.
func DraftArticleID(path string) string {
	return "inbox:" + path
}
