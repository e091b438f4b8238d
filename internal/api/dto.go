package api

import (
	"time"

	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/editor"
	"github.com/starford/gaceta/internal/store"
)

// OpenSessionRequest is the request body for opening an editing session.
// An empty ArticleID opens a new, unsaved article.
type OpenSessionRequest struct {
	ArticleID string `json:"article_id" example:"1842"`
}

// Session is the client view of an editing session (aliased from the editor layer).
type Session = editor.Snapshot

// UpdateContentRequest changes article fields (aliased from the editor layer).
type UpdateContentRequest = editor.Update

// EventRequest forwards one editor event.
type EventRequest struct {
	Event     string             `json:"event" example:"enter" validate:"required"`
	Mark      string             `json:"mark,omitempty" example:"bold"`
	Selection *content.Selection `json:"selection,omitempty"`
}

// EventResponse reports the actions taken and the resulting session.
type EventResponse struct {
	Actions []content.Action `json:"actions" validate:"required"`
	Session Session          `json:"session" validate:"required"`
}

// PasteRequest carries a pasted HTML fragment.
type PasteRequest struct {
	HTML      string             `json:"html" example:"<p>pegado</p>" validate:"required"`
	Selection *content.Selection `json:"selection,omitempty"`
}

// HeaderImageRequest sets the header image.
type HeaderImageRequest struct {
	URL string `json:"url" example:"https://cdn.example/portada.jpg" validate:"required"`
}

// ImageReport is the ledger view of a session (aliased from the editor layer).
type ImageReport = editor.ImageReport

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	URL string `json:"url" example:"https://cdn.example/foto.jpg" validate:"required"`
	Img string `json:"img" example:"<img src=\"https://cdn.example/foto.jpg\">" validate:"required"`
}

// SaveRequest names the backend article for sessions opened without one.
type SaveRequest struct {
	ArticleID string `json:"article_id,omitempty" example:"1842"`
}

// NormalizeRequest is the request body for stateless normalization.
type NormalizeRequest struct {
	HTML string `json:"html" example:"<div><b>hola</b></div>" validate:"required"`
}

// NormalizeResponse carries the normalized body.
type NormalizeResponse struct {
	HTML string `json:"html" validate:"required"`
}

// FormatWarningResponse tells the client whether to show the one-time
// formatting notice.
type FormatWarningResponse struct {
	Show bool `json:"show"`
}

// DraftItem is a lightweight inbox draft in a list response.
type DraftItem struct {
	Path      string    `json:"path" example:"deportes/cronica.html"`
	Title     string    `json:"title" example:"Crónica del derbi"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	UpdatedAt time.Time `json:"updated_at"`
}

// DraftListResponse wraps the inbox listing.
type DraftListResponse struct {
	Drafts []DraftItem `json:"drafts" validate:"required"`
	Total  int         `json:"total" example:"42" validate:"required"`
}

// DraftSearchResponse wraps draft search results.
type DraftSearchResponse struct {
	Results []store.DraftHit `json:"results" validate:"required"`
}
