// Package inbox normalizes legacy HTML drafts dropped into a watched
// directory. Each draft is parsed, run through the normalizer and written
// under OutputDir with its front matter; its images are recorded in the
// store.
package inbox

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/gaceta/internal/checksum"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/parser"
	"github.com/starford/gaceta/internal/storage"
	"github.com/starford/gaceta/internal/store"
)

// OutputDir holds normalized drafts, relative to the inbox root.
const OutputDir = "normalized"

// Store is the state the inbox keeps between runs.
type Store interface {
	store.Drafts
	ReplaceImages(articleID, source string, urls []string) error
}

// EventCallback is called after a draft was normalized or removed. kind is
// "normalized" or "removed".
type EventCallback func(kind, path string)

// Inbox processes drafts under one root.
type Inbox struct {
	db      Store
	files   storage.Provider
	pattern string
	logger  *slog.Logger
}

// New creates an inbox. An empty pattern selects every HTML file.
func New(db Store, files storage.Provider, pattern string, logger *slog.Logger) *Inbox {
	if pattern == "" {
		pattern = storage.DefaultPattern
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{db: db, files: files, pattern: pattern, logger: logger}
}

// Accepts reports whether rel is a draft this inbox processes.
func (in *Inbox) Accepts(rel string) bool {
	if rel == OutputDir || strings.HasPrefix(rel, OutputDir+"/") {
		return false
	}
	return storage.Match(in.pattern, rel)
}

func (in *Inbox) list() (map[string]string, error) {
	metas, err := in.files.List("", in.pattern)
	if err != nil {
		return nil, err
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if in.Accepts(m.Path) {
			disk[m.Path] = m.Checksum
		}
	}
	return disk, nil
}

// Sync brings the outputs up to date:
//   - new/changed drafts are normalized
//   - outputs whose draft is gone are removed
func (in *Inbox) Sync(cb EventCallback) error {
	disk, err := in.list()
	if err != nil {
		return err
	}
	checksums, err := in.db.AllChecksums()
	if err != nil {
		return err
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if err := in.Process(p); err != nil {
			in.logger.Warn("inbox: normalize failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		in.logger.Debug("inbox: normalized", slog.String("path", p))
		notify(cb, "normalized", p)
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := in.Remove(p); err != nil {
			in.logger.Warn("inbox: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		in.logger.Debug("inbox: removed stale", slog.String("path", p))
		notify(cb, "removed", p)
	}
	return nil
}

func notify(cb EventCallback, kind, p string) {
	if cb != nil {
		cb(kind, p)
	}
}

// Process normalizes the draft at rel and records it.
func (in *Inbox) Process(rel string) error {
	data, err := in.files.Read(rel)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	art := res.Article()

	body, err := content.Normalize(art.Content)
	if err != nil {
		return fmt.Errorf("inbox: normalize %s: %w", rel, err)
	}
	body, err = content.NewLedger(art.HeaderImage).DetachHeader(body)
	if err != nil {
		return err
	}
	images, err := content.ExtractImages(body, art.HeaderImage)
	if err != nil {
		return err
	}

	fm := map[string]any{
		"titulo":          art.Title,
		"subtitulo":       art.Subtitle,
		"imagen_cabecera": art.HeaderImage,
	}
	for k, v := range art.Metadata {
		fm[k] = v
	}
	out, err := render(fm, body)
	if err != nil {
		return err
	}
	if err := in.files.Write(OutputPath(rel), out); err != nil {
		return err
	}

	text, err := content.PlainText(body)
	if err != nil {
		return err
	}

	if err := in.db.ReplaceImages(store.DraftArticleID(rel), "inbox", images); err != nil {
		return err
	}
	return in.db.UpsertDraft(store.DraftRow{
		Path:      rel,
		Title:     art.Title,
		Body:      text,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now().UTC(),
	})
}

// Remove deletes the output and state of a draft that no longer exists.
func (in *Inbox) Remove(rel string) error {
	if err := in.files.Delete(OutputPath(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return in.db.DeleteDraft(rel)
}

// OutputPath is where the normalized form of rel is written.
func OutputPath(rel string) string {
	return path.Join(OutputDir, rel)
}

func render(fm map[string]any, body string) ([]byte, error) {
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("inbox: encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
