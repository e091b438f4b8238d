package store

import "github.com/starford/gaceta/internal/models"

// Preferences persists per-user editor state.
type Preferences interface {
	Preferences(userID string) (models.Preferences, error)
	AcknowledgeFormatWarning(userID string) error
}

// Images records image URLs per article.
type Images interface {
	AddImage(rec models.ImageRecord) error
	ReplaceImages(articleID, source string, urls []string) error
	ImagesFor(articleID string) ([]models.ImageRecord, error)
}

// Drafts tracks inbox sync state and searches draft text.
type Drafts interface {
	UpsertDraft(d DraftRow) error
	DeleteDraft(path string) error
	AllChecksums() (map[string]string, error)
	ListDrafts() ([]DraftRow, error)
	SearchDrafts(query string, limit int) ([]DraftHit, error)
}

// Verify *DB satisfies the store interfaces at compile time.
var (
	_ Preferences = (*DB)(nil)
	_ Images      = (*DB)(nil)
	_ Drafts      = (*DB)(nil)
)
