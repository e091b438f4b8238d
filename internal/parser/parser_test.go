package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitulo: Hola\nsubtitulo: Mundo\nimagen_cabecera: https://cdn.example/h.jpg\nseccion: local\netiquetas:\n  - pleno\n  - pleno\n  - obras\n---\n<h1>Otro</h1>\n<p>Cuerpo.</p>\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hola" || r.Subtitle != "Mundo" || r.HeaderImage != "https://cdn.example/h.jpg" {
		t.Errorf("result = %+v", r)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "pleno" || r.Tags[1] != "obras" {
		t.Errorf("tags = %v, want [pleno obras]", r.Tags)
	}
	if r.Body != "<h1>Otro</h1>\n<p>Cuerpo.</p>\n" {
		t.Errorf("body = %q", r.Body)
	}

	art := r.Article()
	if art.Title != "Hola" || art.Content != r.Body {
		t.Errorf("article = %+v", art)
	}
	if art.Metadata["seccion"] != "local" {
		t.Errorf("metadata = %v", art.Metadata)
	}
	if _, ok := art.Metadata["titulo"]; ok {
		t.Error("titulo duplicated into metadata")
	}
	if tags, ok := art.Metadata["etiquetas"].([]string); !ok || len(tags) != 2 {
		t.Errorf("etiquetas = %#v", art.Metadata["etiquetas"])
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("<h1>Solo un  titular</h1><p>Texto.</p>")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Solo un titular" {
		t.Errorf("title = %q, want %q", r.Title, "Solo un titular")
	}
	if r.Article().Metadata != nil {
		t.Error("metadata from a draft without front matter")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\n<p>Body</p>\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnclosedFrontmatterIsBody(t *testing.T) {
	input := []byte("---\ntitulo: x\n<p>sin cierre</p>")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil || r.Body != string(input) {
		t.Errorf("result = %+v", r)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"titulo": "FM"}
	title, err := deriveTitle(fm, "<h1>H1</h1>")
	if err != nil {
		t.Fatal(err)
	}
	if title != "FM" {
		t.Errorf("title = %q, want %q", title, "FM")
	}
}

func TestStringKey_NonString(t *testing.T) {
	if got := stringKey(map[string]any{"titulo": 2024}, "titulo"); got != "2024" {
		t.Errorf("stringKey = %q", got)
	}
	if got := stringKey(nil, "titulo"); got != "" {
		t.Errorf("stringKey(nil) = %q", got)
	}
}
