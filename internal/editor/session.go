// Package editor holds server-side editing sessions. A session owns one
// article body, its image ledger and the caret selection, and applies the
// block state machine to the events the browser widget forwards.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/checksum"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/models"
)

// Saver persists an article.
type Saver interface {
	Save(ctx context.Context, id string, art *models.Article) error
}

// Snapshot is the client view of a session.
type Snapshot struct {
	ID          string            `json:"id"`
	ArticleID   string            `json:"article_id,omitempty"`
	Title       string            `json:"titulo"`
	Subtitle    string            `json:"subtitulo"`
	HeaderImage string            `json:"imagen_cabecera"`
	Content     string            `json:"contenido"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Selection   content.Selection `json:"selection"`
	Blocks      []string          `json:"blocks"`
	Dirty       bool              `json:"dirty"`
}

// Update changes article fields. Nil fields are left alone.
type Update struct {
	Content  *string        `json:"contenido,omitempty"`
	Title    *string        `json:"titulo,omitempty"`
	Subtitle *string        `json:"subtitulo,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Session is one article open in the editor. All methods are safe for
// concurrent use.
type Session struct {
	id     string
	userID string
	settle time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	article  *models.Article // Content and HeaderImage live in doc and ledger
	doc      *content.Document
	ledger   *content.Ledger
	sel      content.Selection
	savedSum string
}

func newSession(id, userID string, art *models.Article, known []string, settle time.Duration, logger *slog.Logger) (*Session, error) {
	ledger := content.NewLedger(art.HeaderImage, known...)
	body, err := ledger.DetachHeader(art.Content)
	if err != nil {
		return nil, err
	}
	doc, err := content.ParseDocument(body)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:      id,
		userID:  userID,
		settle:  settle,
		logger:  logger.With(slog.String("session", id)),
		article: art.Clone(),
		doc:     doc,
		ledger:  ledger,
	}
	s.savedSum, err = s.sumLocked()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the id of the principal that opened the session.
func (s *Session) UserID() string { return s.userID }

// ArticleID returns the backend id, empty for an article never saved.
func (s *Session) ArticleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.article.ID
}

// Snapshot returns the current state.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() (Snapshot, error) {
	body, err := s.doc.HTML()
	if err != nil {
		return Snapshot{}, err
	}
	sum, err := s.sumLocked()
	if err != nil {
		return Snapshot{}, err
	}
	blocks := s.doc.Blocks()
	types := make([]string, len(blocks))
	for i, b := range blocks {
		types[i] = b.Type.String()
	}
	art := s.article.Clone()
	return Snapshot{
		ID:          s.id,
		ArticleID:   art.ID,
		Title:       art.Title,
		Subtitle:    art.Subtitle,
		HeaderImage: s.ledger.Header(),
		Content:     body,
		Metadata:    art.Metadata,
		Selection:   s.sel,
		Blocks:      types,
		Dirty:       sum != s.savedSum,
	}, nil
}

func (s *Session) sumLocked() (string, error) {
	body, err := s.doc.HTML()
	if err != nil {
		return "", err
	}
	return checksum.Fields(s.article.Title, s.article.Subtitle, s.ledger.Header(), body), nil
}

// setBodyLocked replaces the document and keeps the selection in range.
func (s *Session) setBodyLocked(body string) error {
	doc, err := content.ParseDocument(body)
	if err != nil {
		return err
	}
	s.doc = doc
	if n := len(doc.Blocks()); s.sel.Block >= n {
		s.sel.Block = n - 1
	}
	if s.sel.Block < 0 {
		s.sel.Block = 0
	}
	return nil
}

// Update applies field changes. New content is normalized and loses inline
// copies of the header image.
func (s *Session) Update(u Update) (Snapshot, error) {
	var body string
	if u.Content != nil {
		var err error
		if body, err = content.Normalize(*u.Content); err != nil {
			return Snapshot{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Content != nil {
		body, err := s.ledger.DetachHeader(body)
		if err != nil {
			return Snapshot{}, err
		}
		if err := s.setBodyLocked(body); err != nil {
			return Snapshot{}, err
		}
	}
	if u.Title != nil {
		s.article.Title = *u.Title
	}
	if u.Subtitle != nil {
		s.article.Subtitle = *u.Subtitle
	}
	if u.Metadata != nil {
		s.article.Metadata = u.Metadata
	}
	return s.snapshotLocked()
}

// Dispatch feeds ev to the block state machine for the block under sel (the
// current selection when sel is nil) and applies the resulting actions.
func (s *Session) Dispatch(ev content.Event, sel *content.Selection) ([]content.Action, Snapshot, error) {
	if ev.Kind == content.EventPaste {
		return nil, Snapshot{}, errors.New("editor: paste events carry a fragment; use Paste")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sel != nil {
		s.sel = *sel
	}
	bt := s.doc.TypeAt(s.sel)
	actions := content.Transition(bt, ev)
	next, err := s.doc.Apply(s.sel, actions)
	if err != nil {
		s.logger.Warn("editor: apply failed", slog.String("event", ev.Kind.String()), slog.String("error", err.Error()))
		return nil, Snapshot{}, err
	}
	s.sel = next
	s.logger.Debug("editor: event applied",
		slog.String("event", ev.Kind.String()),
		slog.String("block", bt.String()),
		slog.Any("actions", actions))
	snap, err := s.snapshotLocked()
	return actions, snap, err
}

// Paste merges fragment after the block under sel. The fragment is
// normalized first; canonical typography is forced onto the inserted nodes
// after the settle delay, or at once when ctx is cancelled.
func (s *Session) Paste(ctx context.Context, fragment string, sel *content.Selection) (Snapshot, error) {
	prepared, err := content.PreparePaste(fragment)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if sel != nil {
		s.sel = *sel
	}
	doc := s.doc
	nodes, next, err := doc.InsertFragment(s.sel, prepared)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.sel = next
	s.mu.Unlock()

	var waitErr error
	if s.settle > 0 {
		t := time.NewTimer(s.settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			waitErr = ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The body may have been replaced while waiting; the nodes then belong
	// to a discarded tree.
	if s.doc == doc {
		content.FinalizePaste(nodes)
	}
	s.logger.Debug("editor: paste applied", slog.Int("blocks", len(nodes)))
	if waitErr != nil {
		return Snapshot{}, waitErr
	}
	return s.snapshotLocked()
}

// SetHeaderImage makes url the header image.
func (s *Session) SetHeaderImage(url string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := s.doc.HTML()
	if err != nil {
		return Snapshot{}, err
	}
	body, err = s.ledger.SetHeaderImage(body, url)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.setBodyLocked(body); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked()
}

// RemoveImage removes inline occurrences of url.
func (s *Session) RemoveImage(url string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := s.doc.HTML()
	if err != nil {
		return Snapshot{}, err
	}
	body, err = s.ledger.RemoveImage(body, url)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.setBodyLocked(body); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked()
}

// RecordUpload adds url to the ledger's known set.
func (s *Session) RecordUpload(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RecordUpload(url)
}

// ImageReport is the ledger view of a session.
type ImageReport struct {
	Header string   `json:"imagen_cabecera"`
	Images []string `json:"images"`
	content.Reconciliation
}

// Images extracts and reconciles the session's images.
func (s *Session) Images() (ImageReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := s.doc.HTML()
	if err != nil {
		return ImageReport{}, err
	}
	imgs, err := s.ledger.Images(body)
	if err != nil {
		return ImageReport{}, err
	}
	rec, err := s.ledger.Reconcile(body)
	if err != nil {
		return ImageReport{}, err
	}
	if imgs == nil {
		imgs = []string{}
	}
	return ImageReport{Header: s.ledger.Header(), Images: imgs, Reconciliation: rec}, nil
}

// Known returns every image URL the session knows about.
func (s *Session) Known() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Known()
}

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatHTML     = "html"
)

// Export renders the body in format.
func (s *Session) Export(format string) (string, error) {
	s.mu.Lock()
	body, err := s.doc.HTML()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	switch format {
	case FormatMarkdown, "":
		return content.ToMarkdown(body)
	case FormatText:
		return content.PlainText(body)
	case FormatHTML:
		return content.Normalize(body)
	default:
		return "", &apperr.ValidationError{Fields: map[string]string{"format": fmt.Sprintf("unknown export format %q", format)}}
	}
}

// Save writes the article through saver. The session stays editable while
// the save is in flight; edits made meanwhile keep the session dirty. id is
// used when the session has no article id yet.
func (s *Session) Save(ctx context.Context, saver Saver, id string) (Snapshot, error) {
	s.mu.Lock()
	if s.article.ID != "" {
		id = s.article.ID
	}
	if id == "" {
		s.mu.Unlock()
		return Snapshot{}, &apperr.ValidationError{Fields: map[string]string{"id": "a new article needs an id before it can be saved"}}
	}
	body, err := s.doc.HTML()
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	sum, err := s.sumLocked()
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	art := s.article.Clone()
	art.ID = id
	art.Content = body
	art.HeaderImage = s.ledger.Header()
	s.mu.Unlock()

	if err := saver.Save(ctx, id, art); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.article.ID = id
	s.savedSum = sum
	return s.snapshotLocked()
}
