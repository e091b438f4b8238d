package content

import (
	"fmt"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// ToMarkdown converts a normalized body to Markdown for syndication feeds.
func ToMarkdown(doc string) (string, error) {
	md, err := htmltomarkdown.ConvertString(strings.ReplaceAll(doc, zeroWidthSpace, ""))
	if err != nil {
		return "", fmt.Errorf("content: convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// PlainText returns the reading text of a body, one block per paragraph.
// It feeds the read-aloud player and word counts.
func PlainText(doc string) (string, error) {
	d, err := ParseDocument(doc)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, b := range d.Blocks() {
		t := strings.ReplaceAll(textContent(b.Node), zeroWidthSpace, "")
		t = strings.Join(strings.Fields(t), " ")
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// WordCount counts words in the reading text.
func WordCount(doc string) (int, error) {
	text, err := PlainText(doc)
	if err != nil {
		return 0, err
	}
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) && r != '\'' && r != '-'
	})), nil
}
