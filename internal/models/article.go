// Package models defines the domain types for Gaceta.
package models

import "time"

// Article is an article as the editor sees it. Content is the normalized
// HTML body; HeaderImage is kept out of the body.
type Article struct {
	ID          string         `json:"id"`
	Title       string         `json:"titulo"`
	Subtitle    string         `json:"subtitulo"`
	Content     string         `json:"contenido"`
	HeaderImage string         `json:"imagen_cabecera"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy that shares nothing mutable with a.
func (a *Article) Clone() *Article {
	out := *a
	if a.Metadata != nil {
		out.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Profile is the acting principal as reported by the backend.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	IsWorker bool   `json:"isWorker"`
}

// Preferences is per-user editor state that outlives a session.
type Preferences struct {
	UserID                    string `json:"user_id"`
	FormatWarningAcknowledged bool   `json:"format_warning_acknowledged"`
}

// ImageRecord is an image URL known to the service.
type ImageRecord struct {
	ArticleID string    `json:"article_id"`
	URL       string    `json:"url"`
	Source    string    `json:"source"` // "upload" or "inbox"
	CreatedAt time.Time `json:"created_at"`
}

// DraftMetadata is a lightweight representation of an inbox draft file.
type DraftMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
