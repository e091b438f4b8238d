// Package testutil provides shared test helpers for databases, inbox
// directories and a fake newspaper backend.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/starford/gaceta/internal/storage"
	"github.com/starford/gaceta/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gaceta-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInbox creates a temporary inbox directory with a storage.Provider.
func TestInbox(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	p, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, p
}

// Backend is an in-memory newspaper backend served over httptest.
type Backend struct {
	URL string

	mu       sync.Mutex
	worker   bool
	articles map[string]map[string]any
	uploads  int
	tokens   []string
	users    map[string]string
}

// NewBackend starts a fake backend whose principal is a worker with id "u1"
// unless SetUser maps the token to another id.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{worker: true, articles: make(map[string]map[string]any), users: make(map[string]string)}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	b.URL = srv.URL
	return b
}

func (b *Backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/perfil", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		auth := r.Header.Get("Authorization")
		b.tokens = append(b.tokens, auth)
		worker := b.worker
		id := b.users[strings.TrimPrefix(auth, "Bearer ")]
		b.mu.Unlock()
		if auth == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if id == "" {
			id = "u1"
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "nombre": "Ana", "isWorker": worker})
	})
	mux.HandleFunc("GET /api/noticias/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		a, ok := b.articles[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})
	mux.HandleFunc("PUT /api/noticias/{id}", func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if t, _ := fields["titulo"].(string); t == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"titulo": []string{"Este campo es obligatorio."}})
			return
		}
		b.mu.Lock()
		b.articles[r.PathValue("id")] = fields
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, fields)
	})
	mux.HandleFunc("POST /api/imagenes", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)
		b.mu.Lock()
		b.uploads++
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": "https://cdn.example/" + hdr.Filename})
	})
	return mux
}

// SetWorker sets the worker flag of the principal.
func (b *Backend) SetWorker(worker bool) {
	b.mu.Lock()
	b.worker = worker
	b.mu.Unlock()
}

// SetUser makes token authenticate as the principal id.
func (b *Backend) SetUser(token, id string) {
	b.mu.Lock()
	b.users[token] = id
	b.mu.Unlock()
}

// SetArticle stores raw article fields.
func (b *Backend) SetArticle(id string, fields map[string]any) {
	b.mu.Lock()
	b.articles[id] = fields
	b.mu.Unlock()
}

// Article returns the stored fields of an article, nil if absent.
func (b *Backend) Article(id string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.articles[id]
}

// Uploads returns the number of images the backend accepted.
func (b *Backend) Uploads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

// Tokens returns the Authorization headers seen by the profile endpoint.
func (b *Backend) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
