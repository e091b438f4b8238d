package article

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/content"
	"github.com/starford/gaceta/internal/models"
)

// fakeBackend is an in-memory stand-in for the newspaper REST backend.
type fakeBackend struct {
	mu       sync.Mutex
	worker   bool
	articles map[string]map[string]any
	puts     []map[string]any
	auth     []string
	gets     int

	// status, when set, is returned by the article endpoints with body.
	status int
	body   string

	// putStarted and putRelease hold a PUT open when non-nil.
	putStarted chan struct{}
	putRelease chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{worker: true, articles: make(map[string]map[string]any)}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/perfil", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		worker := f.worker
		f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]any{"id": "u1", "nombre": "Ana", "isWorker": worker})
	})
	mux.HandleFunc("GET /api/noticias/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.gets++
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		a, ok := f.articles[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeTestJSON(w, http.StatusOK, a)
	})
	mux.HandleFunc("PUT /api/noticias/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		started, release := f.putStarted, f.putRelease
		f.mu.Unlock()
		if started != nil {
			started <- struct{}{}
			<-release
		}
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		f.puts = append(f.puts, fields)
		f.articles[r.PathValue("id")] = fields
		writeTestJSON(w, http.StatusOK, fields)
	})
	mux.HandleFunc("POST /api/imagenes", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeTestJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			writeTestJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{"success": true, "url": "https://cdn.example/" + hdr.Filename})
	})
	return mux
}

func (f *fakeBackend) hold() (started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putStarted = make(chan struct{})
	f.putRelease = make(chan struct{})
	return f.putStarted, f.putRelease
}

func (f *fakeBackend) unhold() {
	f.mu.Lock()
	f.putStarted, f.putRelease = nil, nil
	f.mu.Unlock()
}

func (f *fakeBackend) stored(id, key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.articles[id][key]
}

func (f *fakeBackend) recordedPuts() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.puts...)
}

func (f *fakeBackend) recordedAuth() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *fakeBackend) articleGets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T) (*fakeBackend, *Client, *Adapter, context.Context) {
	t.Helper()
	fb := newFakeBackend()
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, 5*time.Second)
	return fb, client, NewAdapter(client, nil), WithToken(context.Background(), "tok")
}

func TestAdapter_RoundTrip(t *testing.T) {
	fb, _, ad, ctx := setup(t)
	fb.articles["7"] = map[string]any{"titulo": "Old"}

	inputs := []string{
		`<h1>Title</h1><p>Body with <b>bold</b> and <img src="https://cdn.example/a.jpg"></p>`,
		`<div style="color:red">legacy</div><h4>demoted</h4><pre>info</pre>`,
	}
	for _, raw := range inputs {
		want, err := content.Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		art := &models.Article{Title: "T", Subtitle: "S", Content: raw, HeaderImage: "https://cdn.example/h.jpg"}
		if err := ad.Save(ctx, "7", art); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := ad.Load(ctx, "7")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Content != want {
			t.Errorf("round trip changed content\ngot  %s\nwant %s", got.Content, want)
		}
		if got.Title != "T" || got.Subtitle != "S" || got.HeaderImage != "https://cdn.example/h.jpg" {
			t.Errorf("metadata lost: %+v", got)
		}

		// Saving the loaded article again must not change the stored body.
		if err := ad.Save(ctx, "7", got); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if stored := fb.stored("7", "contenido"); stored != want {
			t.Errorf("re-save changed stored body: %v", stored)
		}
	}
}

func TestAdapter_SaveClearsLegacySlotsAndKeepsMetadata(t *testing.T) {
	fb, _, ad, ctx := setup(t)
	fb.articles["9"] = map[string]any{
		"titulo": "A", "contenido": "<p>x</p>", "seccion": "deportes", "imagen_3": "old.jpg",
	}

	art, err := ad.Load(ctx, "9")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if art.Metadata["seccion"] != "deportes" {
		t.Errorf("metadata = %v", art.Metadata)
	}
	if _, ok := art.Metadata["imagen_3"]; ok {
		t.Error("legacy slot surfaced as metadata")
	}
	if err := ad.Save(ctx, "9", art); err != nil {
		t.Fatalf("Save: %v", err)
	}

	puts := fb.recordedPuts()
	put := puts[len(puts)-1]
	for _, k := range legacySlots {
		if v, ok := put[k]; !ok || v != "" {
			t.Errorf("%s = %v, want empty string", k, v)
		}
	}
	if put["seccion"] != "deportes" {
		t.Errorf("seccion = %v", put["seccion"])
	}
	for _, h := range fb.recordedAuth() {
		if h != "Bearer tok" {
			t.Errorf("Authorization = %q", h)
		}
	}
}

func TestAdapter_NonWorkerStopsBeforeLoad(t *testing.T) {
	fb, _, ad, ctx := setup(t)
	fb.worker = false
	fb.articles["1"] = map[string]any{"contenido": "<p>x</p>"}

	if _, err := ad.Load(ctx, "1"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Load err = %v, want ErrUnauthorized", err)
	}
	if err := ad.Save(ctx, "1", &models.Article{Content: "<p>y</p>"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Save err = %v, want ErrUnauthorized", err)
	}
	if gets, puts := fb.articleGets(), len(fb.recordedPuts()); gets != 0 || puts != 0 {
		t.Errorf("article endpoints called: gets=%d puts=%d", gets, puts)
	}
	if !apperr.RequiresSignIn(apperr.ErrUnauthorized) {
		t.Error("non-worker should be sent to sign-in")
	}
}

func TestAdapter_ConcurrentSaveRejected(t *testing.T) {
	fb, _, ad, ctx := setup(t)
	started, release := fb.hold()

	done := make(chan error, 1)
	go func() {
		done <- ad.Save(ctx, "5", &models.Article{Content: "<p>first</p>"})
	}()
	<-started

	if err := ad.Save(ctx, "5", &models.Article{Content: "<p>second</p>"}); !errors.Is(err, apperr.ErrSaveInProgress) {
		t.Errorf("second save err = %v, want ErrSaveInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	puts := fb.recordedPuts()
	if len(puts) != 1 || !strings.Contains(puts[0]["contenido"].(string), "first") {
		t.Errorf("puts = %v", puts)
	}

	// The guard is released once the save resolves.
	fb.unhold()
	if err := ad.Save(ctx, "5", &models.Article{Content: "<p>third</p>"}); err != nil {
		t.Errorf("save after release: %v", err)
	}
}

func TestAdapter_ValidationFailurePerField(t *testing.T) {
	fb, _, ad, ctx := setup(t)
	fb.status = http.StatusBadRequest
	fb.body = `{"titulo": ["Este campo es obligatorio."], "subtitulo": "Demasiado largo."}`

	err := ad.Save(ctx, "3", &models.Article{Content: "<p>x</p>"})
	ve, ok := apperr.IsValidation(err)
	if !ok {
		t.Fatalf("err = %v, want validation error", err)
	}
	msgs := ve.Messages()
	if len(msgs) != 2 || msgs[0] != "Demasiado largo." || msgs[1] != "Este campo es obligatorio." {
		t.Errorf("messages = %v", msgs)
	}
}
