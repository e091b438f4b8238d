// Package parser splits inbox drafts into YAML front matter and an HTML body.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/starford/gaceta/internal/models"
)

// Front matter keys with a dedicated article field.
const (
	keyTitle       = "titulo"
	keySubtitle    = "subtitulo"
	keyHeaderImage = "imagen_cabecera"
	keyTags        = "etiquetas"
)

// Result holds the output of parsing a draft.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Subtitle    string
	HeaderImage string
	Tags        []string
}

// Parse extracts front matter and body from raw draft bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	title, err := deriveTitle(fm, body)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       title,
		Subtitle:    stringKey(fm, keySubtitle),
		HeaderImage: stringKey(fm, keyHeaderImage),
		Tags:        extractTags(fm),
	}, nil
}

// Article converts the result into an article. Unknown front matter keys
// become metadata.
func (r *Result) Article() *models.Article {
	art := &models.Article{
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Content:     r.Body,
		HeaderImage: r.HeaderImage,
	}
	for k, v := range r.Frontmatter {
		switch k {
		case keyTitle, keySubtitle, keyHeaderImage:
			continue
		}
		if art.Metadata == nil {
			art.Metadata = make(map[string]any)
		}
		art.Metadata[k] = v
	}
	if len(r.Tags) > 0 {
		art.Metadata[keyTags] = r.Tags
	} else if art.Metadata != nil {
		delete(art.Metadata, keyTags)
	}
	return art
}

// splitFrontmatter separates YAML front matter (between leading ---
// delimiters) from the body. Without front matter the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags reads the "etiquetas" list, dropping blanks and duplicates.
func extractTags(fm map[string]interface{}) []string {
	list, ok := fm[keyTags].([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	var out []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the front matter "titulo" if present, otherwise the
// text of the first h1, otherwise the empty string.
func deriveTitle(fm map[string]interface{}, body string) (string, error) {
	if t := stringKey(fm, keyTitle); t != "" {
		return t, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parser: parse body: %w", err)
	}
	return strings.Join(strings.Fields(doc.Find("h1").First().Text()), " "), nil
}

func stringKey(fm map[string]interface{}, key string) string {
	switch v := fm[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
