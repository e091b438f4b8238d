package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/editor"
	"github.com/starford/gaceta/internal/store"
	"github.com/starford/gaceta/internal/upload"
)

const (
	maxBodyBytes   = 10 << 20 // 10 MB
	maxUploadBytes = 50 << 20 // 50 MB
)

// Handler holds API route handlers.
type Handler struct {
	mgr    *editor.Manager
	drafts store.Drafts
}

// NewHandler creates a new Handler.
func NewHandler(mgr *editor.Manager, drafts store.Drafts) *Handler {
	return &Handler{mgr: mgr, drafts: drafts}
}

// decodeBody reads a JSON body into v. An empty body is accepted when
// optional is set. On failure the response is written and false returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
	return false
}

// session resolves the {id} URL parameter. On failure the response is
// written and nil returned.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *editor.Session {
	s, err := h.mgr.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return nil
	}
	return s
}

func writeSnapshot(w http.ResponseWriter, status int, op string, snap editor.Snapshot, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, status, snap)
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an article in the editor
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	false	"Article to open"
//	@Success		201		{object}	Session
//	@Failure		401		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	s, err := h.mgr.Open(r.Context(), req.ArticleID)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	snap, err := s.Snapshot()
	writeSnapshot(w, http.StatusCreated, "open session", snap, err)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the current state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	Session
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	snap, err := s.Snapshot()
	writeSnapshot(w, http.StatusOK, "get session", snap, err)
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session, discarding unsaved edits
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session closed"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events wraps the SSE stream. Following a session with ?session= requires
// owning it.
//
//	@Summary		Stream editor events
//	@Tags			events
//	@Produce		text/event-stream
//	@Param			session	query	string	false	"Session to follow"
//	@Success		200
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(stream http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("session"); id != "" {
			if _, err := h.mgr.Get(r.Context(), id); err != nil {
				writeError(w, "follow session", err)
				return
			}
		}
		stream.ServeHTTP(w, r)
	}
}

// UpdateContent handles PUT /api/sessions/{id}/content.
//
//	@Summary		Replace article fields; the body is normalized
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Session id"
//	@Param			body	body		UpdateContentRequest	true	"Changed fields"
//	@Success		200		{object}	Session
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req UpdateContentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	snap, err := s.Update(req)
	writeSnapshot(w, http.StatusOK, "update content", snap, err)
}

// Event handles POST /api/sessions/{id}/events.
//
//	@Summary		Apply an editor event to the block under the selection
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		EventRequest	true	"Event"
//	@Success		200		{object}	EventResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/events [post]
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req EventRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	kind := content.ParseEventKind(req.Event)
	switch kind {
	case content.EventNone:
		writeError(w, "event", &apperr.ValidationError{Fields: map[string]string{"event": fmt.Sprintf("unknown event %q", req.Event)}})
		return
	case content.EventPaste:
		writeError(w, "event", &apperr.ValidationError{Fields: map[string]string{"event": "paste events are sent to the paste endpoint"}})
		return
	}
	ev := content.Event{Kind: kind, Mark: content.ParseInlineMark(req.Mark)}
	actions, snap, err := h.mgr.Dispatch(s, ev, req.Selection)
	if err != nil {
		writeError(w, "event", err)
		return
	}
	if actions == nil {
		actions = []content.Action{}
	}
	writeJSON(w, http.StatusOK, EventResponse{Actions: actions, Session: snap})
}

// Paste handles POST /api/sessions/{id}/paste.
//
//	@Summary		Merge a pasted fragment after the block under the selection
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		PasteRequest	true	"Fragment"
//	@Success		200		{object}	Session
//	@Security		BearerAuth
//	@Router			/sessions/{id}/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req PasteRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	snap, err := h.mgr.Paste(r.Context(), s, req.HTML, req.Selection)
	writeSnapshot(w, http.StatusOK, "paste", snap, err)
}

// UploadImage handles POST /api/sessions/{id}/images (multipart/form-data, field "file").
//
//	@Summary		Upload an image for the session
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Param			file	formData	file	true	"Image"
//	@Success		201		{object}	UploadResponse
//	@Failure		415		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/images [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	f := upload.File{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
	url, err := h.mgr.Upload(r.Context(), s, f, nil)
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		URL: url,
		Img: fmt.Sprintf(`<img src="%s">`, html.EscapeString(url)),
	})
}

// SetHeaderImage handles PUT /api/sessions/{id}/header-image.
//
//	@Summary		Make an image the article header
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session id"
//	@Param			body	body		HeaderImageRequest	true	"Image URL"
//	@Success		200		{object}	Session
//	@Security		BearerAuth
//	@Router			/sessions/{id}/header-image [put]
func (h *Handler) SetHeaderImage(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req HeaderImageRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.URL == "" {
		writeError(w, "set header image", &apperr.ValidationError{Fields: map[string]string{"url": "url is required"}})
		return
	}
	snap, err := h.mgr.SetHeaderImage(s, req.URL)
	writeSnapshot(w, http.StatusOK, "set header image", snap, err)
}

// RemoveImage handles DELETE /api/sessions/{id}/images?url=.
//
//	@Summary		Remove an inline image from the body
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Param			url	query		string	true	"Image URL"
//	@Success		200	{object}	Session
//	@Security		BearerAuth
//	@Router			/sessions/{id}/images [delete]
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	snap, err := h.mgr.RemoveImage(s, url)
	writeSnapshot(w, http.StatusOK, "remove image", snap, err)
}

// Images handles GET /api/sessions/{id}/images.
//
//	@Summary		List the session's images with their reconciliation
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	ImageReport
//	@Security		BearerAuth
//	@Router			/sessions/{id}/images [get]
func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	report, err := s.Images()
	if err != nil {
		writeError(w, "images", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Save handles POST /api/sessions/{id}/save.
//
//	@Summary		Persist the article to the backend
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		SaveRequest	false	"Article id for new articles"
//	@Success		200		{object}	Session
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req SaveRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	snap, err := h.mgr.Save(r.Context(), s, req.ArticleID)
	writeSnapshot(w, http.StatusOK, "save", snap, err)
}

var exportTypes = map[string]struct{ mime, ext string }{
	editor.FormatMarkdown: {"text/markdown; charset=utf-8", ".md"},
	editor.FormatText:     {"text/plain; charset=utf-8", ".txt"},
	editor.FormatHTML:     {"text/html; charset=utf-8", ".html"},
}

// Export handles GET /api/sessions/{id}/export?format=.
//
//	@Summary		Download the body as Markdown, plain text or HTML
//	@Tags			sessions
//	@Produce		plain
//	@Param			id		path	string	true	"Session id"
//	@Param			format	query	string	false	"Export format"	Enums(markdown, text, html)
//	@Success		200		{string}	string
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = editor.FormatMarkdown
	}
	out, err := s.Export(format)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		writeError(w, "export", err)
		return
	}
	name := slug.MakeLang(snap.Title, "es")
	if name == "" {
		name = "articulo"
	}
	t := exportTypes[format]
	w.Header().Set("Content-Type", t.mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, t.ext))
	_, _ = io.WriteString(w, out)
}

// Normalize handles POST /api/normalize.
//
//	@Summary		Normalize an article body without a session
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NormalizeRequest	true	"Body"
//	@Success		200		{object}	NormalizeResponse
//	@Security		BearerAuth
//	@Router			/normalize [post]
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	out, err := h.mgr.Normalize(req.HTML)
	if err != nil {
		writeError(w, "normalize", err)
		return
	}
	writeJSON(w, http.StatusOK, NormalizeResponse{HTML: out})
}

// FormatWarning handles GET /api/preferences/format-warning.
//
//	@Summary		Whether the one-time formatting notice is still due
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	FormatWarningResponse
//	@Security		BearerAuth
//	@Router			/preferences/format-warning [get]
func (h *Handler) FormatWarning(w http.ResponseWriter, r *http.Request) {
	show, err := h.mgr.FormatWarning(r.Context())
	if err != nil {
		writeError(w, "format warning", err)
		return
	}
	writeJSON(w, http.StatusOK, FormatWarningResponse{Show: show})
}

// AcknowledgeFormatWarning handles POST /api/preferences/format-warning.
//
//	@Summary		Record that the formatting notice was seen
//	@Tags			preferences
//	@Success		204	"Acknowledged"
//	@Security		BearerAuth
//	@Router			/preferences/format-warning [post]
func (h *Handler) AcknowledgeFormatWarning(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.AcknowledgeFormatWarning(r.Context()); err != nil {
		writeError(w, "acknowledge format warning", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDrafts handles GET /api/drafts.
//
//	@Summary		List inbox drafts, or search their text
//	@Tags			drafts
//	@Produce		json
//	@Param			q		query		string	false	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	DraftListResponse
//	@Security		BearerAuth
//	@Router			/drafts [get]
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		hits, err := h.drafts.SearchDrafts(q, limit)
		if err != nil {
			slog.Error("search drafts failed", slog.String("query", q), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		if hits == nil {
			hits = []store.DraftHit{}
		}
		writeJSON(w, http.StatusOK, DraftSearchResponse{Results: hits})
		return
	}

	rows, err := h.drafts.ListDrafts()
	if err != nil {
		slog.Error("list drafts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]DraftItem, len(rows))
	for i, d := range rows {
		items[i] = DraftItem{Path: d.Path, Title: d.Title, Checksum: d.Checksum, UpdatedAt: d.UpdatedAt}
	}
	writeJSON(w, http.StatusOK, DraftListResponse{Drafts: items, Total: len(items)})
}
