package article

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/models"
)

// Backend is the subset of the REST backend the adapter needs.
type Backend interface {
	Profile(ctx context.Context) (*models.Profile, error)
	GetArticle(ctx context.Context, id string) (map[string]any, error)
	PutArticle(ctx context.Context, id string, fields map[string]any) error
}

// Backend field names.
const (
	fieldID          = "id"
	fieldTitle       = "titulo"
	fieldSubtitle    = "subtitulo"
	fieldContent     = "contenido"
	fieldHeaderImage = "imagen_cabecera"
)

// legacySlots are the per-slot image columns of the old image model. They
// are cleared on every save.
var legacySlots = []string{"imagen_1", "imagen_2", "imagen_3", "imagen_4", "imagen_5", "imagen_6"}

// Adapter loads and saves articles. Every call first checks that the
// principal is a worker.
type Adapter struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAdapter creates an adapter over backend.
func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{backend: backend, logger: logger, inFlight: make(map[string]struct{})}
}

// Authorize confirms the principal in ctx has worker capability.
func (a *Adapter) Authorize(ctx context.Context) (*models.Profile, error) {
	p, err := a.backend.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsWorker {
		return nil, apperr.ErrUnauthorized
	}
	return p, nil
}

// Load fetches an article and normalizes its body.
func (a *Adapter) Load(ctx context.Context, id string) (*models.Article, error) {
	if _, err := a.Authorize(ctx); err != nil {
		return nil, err
	}
	fields, err := a.backend.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	art := fromFields(id, fields)
	art.Content, err = content.Normalize(art.Content)
	if err != nil {
		return nil, fmt.Errorf("article: normalize %s: %w", id, err)
	}
	a.logger.Debug("article loaded", slog.String("id", id))
	return art, nil
}

// Save normalizes the body and writes the article. A save for an article
// that already has one in flight fails with apperr.ErrSaveInProgress.
func (a *Adapter) Save(ctx context.Context, id string, art *models.Article) error {
	if !a.begin(id) {
		return apperr.ErrSaveInProgress
	}
	defer a.end(id)

	if _, err := a.Authorize(ctx); err != nil {
		return err
	}
	body, err := content.Normalize(art.Content)
	if err != nil {
		return fmt.Errorf("article: normalize %s: %w", id, err)
	}
	if err := a.backend.PutArticle(ctx, id, toFields(art, body)); err != nil {
		return err
	}
	a.logger.Info("article saved", slog.String("id", id))
	return nil
}

func (a *Adapter) begin(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inFlight[id]; busy {
		return false
	}
	a.inFlight[id] = struct{}{}
	return true
}

func (a *Adapter) end(id string) {
	a.mu.Lock()
	delete(a.inFlight, id)
	a.mu.Unlock()
}

func fromFields(id string, fields map[string]any) *models.Article {
	art := &models.Article{
		ID:          id,
		Title:       stringField(fields, fieldTitle),
		Subtitle:    stringField(fields, fieldSubtitle),
		Content:     stringField(fields, fieldContent),
		HeaderImage: stringField(fields, fieldHeaderImage),
	}
	skip := map[string]bool{fieldID: true, fieldTitle: true, fieldSubtitle: true, fieldContent: true, fieldHeaderImage: true}
	for _, k := range legacySlots {
		skip[k] = true
	}
	for k, v := range fields {
		if skip[k] {
			continue
		}
		if art.Metadata == nil {
			art.Metadata = make(map[string]any)
		}
		art.Metadata[k] = v
	}
	return art
}

func toFields(art *models.Article, body string) map[string]any {
	fields := make(map[string]any, len(art.Metadata)+4+len(legacySlots))
	for k, v := range art.Metadata {
		fields[k] = v
	}
	fields[fieldTitle] = art.Title
	fields[fieldSubtitle] = art.Subtitle
	fields[fieldContent] = body
	fields[fieldHeaderImage] = art.HeaderImage
	for _, k := range legacySlots {
		fields[k] = ""
	}
	return fields
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
