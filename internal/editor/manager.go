package editor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/article"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/metrics"
	"github.com/starford/gaceta/internal/models"
	"github.com/starford/gaceta/internal/sse"
	"github.com/starford/gaceta/internal/store"
	"github.com/starford/gaceta/internal/upload"
)

// Publisher receives editor events for connected clients.
type Publisher interface {
	Publish(event sse.Event)
	PublishImageEvent(kind, session, url string)
}

// Deps are the collaborators of a Manager. Events and Metrics may be nil.
type Deps struct {
	Adapter     *article.Adapter
	Uploads     *upload.Service
	Images      store.Images
	Preferences store.Preferences
	Events      Publisher
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Options tune session handling.
type Options struct {
	SettleDelay  time.Duration
	IdleTTL      time.Duration
	MaxSessions  int
	// PrincipalTTL is how long a token's worker profile is reused before
	// the backend is asked again. Zero checks on every request.
	PrincipalTTL time.Duration
}

// Manager owns the open sessions. Sessions idle for longer than IdleTTL are
// dropped; unsaved edits in them are lost.
type Manager struct {
	deps     Deps
	settle   time.Duration
	logger   *slog.Logger
	sessions *expirable.LRU[string, *Session]

	// principals caches worker profiles by token; nil when disabled.
	principals *expirable.LRU[string, *models.Profile]
}

// NewManager creates a session manager.
func NewManager(deps Deps, opts Options) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	m := &Manager{deps: deps, settle: opts.SettleDelay, logger: deps.Logger}
	m.sessions = expirable.NewLRU[string, *Session](opts.MaxSessions, func(id string, _ *Session) {
		m.logger.Debug("session closed", slog.String("session", id))
	}, opts.IdleTTL)
	if opts.PrincipalTTL > 0 {
		m.principals = expirable.NewLRU[string, *models.Profile](opts.MaxSessions, nil, opts.PrincipalTTL)
	}
	return m
}

// principal resolves the worker profile of the token in ctx.
func (m *Manager) principal(ctx context.Context) (*models.Profile, error) {
	token := article.TokenFrom(ctx)
	if m.principals != nil && token != "" {
		if p, ok := m.principals.Get(token); ok {
			return p, nil
		}
	}
	p, err := m.deps.Adapter.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if m.principals != nil && token != "" {
		m.principals.Add(token, p)
	}
	return p, nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int { return m.sessions.Len() }

// Open starts a session for articleID, or for a new article when articleID
// is empty. The principal in ctx must be a worker.
func (m *Manager) Open(ctx context.Context, articleID string) (*Session, error) {
	profile, err := m.principal(ctx)
	if err != nil {
		return nil, err
	}
	art := &models.Article{}
	var known []string
	if articleID != "" {
		if art, err = m.deps.Adapter.Load(ctx, articleID); err != nil {
			return nil, err
		}
		if known, err = m.knownImages(articleID); err != nil {
			return nil, err
		}
	}
	s, err := newSession(uuid.NewString(), profile.ID, art, known, m.settle, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions.Add(s.id, s)
	m.logger.Info("session opened",
		slog.String("session", s.id),
		slog.String("article", articleID),
		slog.String("user", profile.ID))
	return s, nil
}

func (m *Manager) knownImages(articleID string) ([]string, error) {
	if m.deps.Images == nil {
		return nil, nil
	}
	recs, err := m.deps.Images.ImagesFor(articleID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(recs))
	for i, r := range recs {
		urls[i] = r.URL
	}
	return urls, nil
}

// Get returns an open session and resets its idle timer. The principal in
// ctx must be a worker and the user who opened the session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, ok := m.sessions.Peek(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	profile, err := m.principal(ctx)
	if err != nil {
		return nil, err
	}
	if profile.ID != s.userID {
		m.logger.Warn("session access denied",
			slog.String("session", id),
			slog.String("user", profile.ID))
		return nil, apperr.ErrUnauthorized
	}
	m.sessions.Add(id, s)
	return s, nil
}

// Close drops a session owned by the principal in ctx.
func (m *Manager) Close(ctx context.Context, id string) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	m.sessions.Remove(id)
	return nil
}

// Normalize runs the normalizer outside any session.
func (m *Manager) Normalize(raw string) (string, error) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.Normalizations.Inc()
	}
	return content.Normalize(raw)
}

// Dispatch forwards an editor event to s.
func (m *Manager) Dispatch(s *Session, ev content.Event, sel *content.Selection) ([]content.Action, Snapshot, error) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.EditorEvents.WithLabelValues(ev.Kind.String()).Inc()
	}
	return s.Dispatch(ev, sel)
}

// Paste forwards a paste event to s.
func (m *Manager) Paste(ctx context.Context, s *Session, fragment string, sel *content.Selection) (Snapshot, error) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.EditorEvents.WithLabelValues(content.EventPaste.String()).Inc()
		m.deps.Metrics.Normalizations.Inc()
	}
	return s.Paste(ctx, fragment, sel)
}

// Upload validates and uploads an image for s. The URL is recorded in the
// session ledger and, for saved articles, in the image store. Progress is
// also published as image.progress events for the session.
func (m *Manager) Upload(ctx context.Context, s *Session, f upload.File, progress func(int)) (string, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
		if m.deps.Events != nil {
			m.deps.Events.Publish(sse.Event{
				Type:    sse.TypeImageProgress,
				Session: s.id,
				Data:    map[string]any{"session": s.id, "file": f.Name, "percent": pct},
			})
		}
	}
	url, err := m.deps.Uploads.Handle(ctx, s, f, report)
	m.countUpload(err)
	if err != nil {
		return "", err
	}
	if id := s.ArticleID(); id != "" && m.deps.Images != nil {
		if err := m.deps.Images.AddImage(models.ImageRecord{ArticleID: id, URL: url, Source: "upload", CreatedAt: time.Now().UTC()}); err != nil {
			m.logger.Warn("record upload failed", slog.String("url", url), slog.String("error", err.Error()))
		}
	}
	m.publishImage(sse.TypeImageUploaded, s.id, url)
	return url, nil
}

func (m *Manager) countUpload(err error) {
	if m.deps.Metrics == nil {
		return
	}
	result := metrics.ResultOK
	if _, ok := apperr.IsValidation(err); ok || errors.Is(err, apperr.ErrUnsupportedFormat) {
		result = metrics.ResultRejected
	} else if err != nil {
		result = metrics.ResultError
	}
	m.deps.Metrics.Uploads.WithLabelValues(result).Inc()
}

// SetHeaderImage makes url the header image of s.
func (m *Manager) SetHeaderImage(s *Session, url string) (Snapshot, error) {
	snap, err := s.SetHeaderImage(url)
	if err != nil {
		return Snapshot{}, err
	}
	m.publishImage(sse.TypeHeaderChanged, s.id, url)
	return snap, nil
}

// RemoveImage removes url from the body of s.
func (m *Manager) RemoveImage(s *Session, url string) (Snapshot, error) {
	snap, err := s.RemoveImage(url)
	if err != nil {
		return Snapshot{}, err
	}
	m.publishImage(sse.TypeImageRemoved, s.id, url)
	return snap, nil
}

func (m *Manager) publishImage(kind, session, url string) {
	if m.deps.Events != nil {
		m.deps.Events.PublishImageEvent(kind, session, url)
	}
}

// Save persists s. articleID names the backend article for a session that
// was opened without one.
func (m *Manager) Save(ctx context.Context, s *Session, articleID string) (Snapshot, error) {
	snap, err := s.Save(ctx, m.deps.Adapter, articleID)
	m.countSave(err)
	if err != nil {
		return Snapshot{}, err
	}
	if m.deps.Images != nil {
		for _, url := range s.Known() {
			rec := models.ImageRecord{ArticleID: snap.ArticleID, URL: url, Source: "upload", CreatedAt: time.Now().UTC()}
			if err := m.deps.Images.AddImage(rec); err != nil {
				m.logger.Warn("record image failed", slog.String("url", url), slog.String("error", err.Error()))
			}
		}
	}
	if m.deps.Events != nil {
		m.deps.Events.Publish(sse.Event{Type: sse.TypeArticleSaved, Session: s.id, Data: map[string]string{
			"session": s.id, "article_id": snap.ArticleID,
		}})
	}
	return snap, nil
}

func (m *Manager) countSave(err error) {
	if m.deps.Metrics == nil {
		return
	}
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrSaveInProgress), errors.Is(err, apperr.ErrConflict):
		result = metrics.ResultConflict
	default:
		if _, ok := apperr.IsValidation(err); ok {
			result = metrics.ResultRejected
		} else {
			result = metrics.ResultError
		}
	}
	m.deps.Metrics.Saves.WithLabelValues(result).Inc()
}

// FormatWarning reports whether the principal still has to acknowledge the
// one-time formatting notice.
func (m *Manager) FormatWarning(ctx context.Context) (bool, error) {
	profile, err := m.principal(ctx)
	if err != nil {
		return false, err
	}
	prefs, err := m.deps.Preferences.Preferences(profile.ID)
	if err != nil {
		return false, err
	}
	return !prefs.FormatWarningAcknowledged, nil
}

// AcknowledgeFormatWarning records that the principal saw the notice.
func (m *Manager) AcknowledgeFormatWarning(ctx context.Context) error {
	profile, err := m.principal(ctx)
	if err != nil {
		return err
	}
	return m.deps.Preferences.AcknowledgeFormatWarning(profile.ID)
}
