package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gaceta/internal/editor"
	"github.com/starford/gaceta/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer tokens are required; when it is false
// backendToken is used for every request.
// drafts, if non-nil, serves the inbox listing and search.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(mgr *editor.Manager, drafts store.Drafts, authEnabled bool, backendToken string, sseHandler http.Handler) chi.Router {
	h := NewHandler(mgr, drafts)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, backendToken))

	r.Post("/normalize", h.Normalize)

	// Sessions.
	r.Post("/sessions", h.OpenSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.CloseSession)
		r.Put("/content", h.UpdateContent)
		r.Post("/events", h.Event)
		r.Post("/paste", h.Paste)
		r.Post("/save", h.Save)
		r.Get("/export", h.Export)

		// Images.
		r.Get("/images", h.Images)
		r.Post("/images", h.UploadImage)
		r.Delete("/images", h.RemoveImage)
		r.Put("/header-image", h.SetHeaderImage)
	})

	// Preferences.
	r.Get("/preferences/format-warning", h.FormatWarning)
	r.Post("/preferences/format-warning", h.AcknowledgeFormatWarning)

	// Inbox drafts.
	if drafts != nil {
		r.Get("/drafts", h.ListDrafts)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", h.Events(sseHandler))
	}

	return r
}
