package content

import (
	"strings"
	"testing"
)

func TestToMarkdown(t *testing.T) {
	doc := styled("h1", "Title") + styled("p", "Some <strong>bold</strong> text") + "<p>\u200b</p>"
	md, err := ToMarkdown(doc)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(md, "# Title") {
		t.Errorf("missing heading: %q", md)
	}
	if !strings.Contains(md, "**bold**") {
		t.Errorf("missing bold: %q", md)
	}
	if strings.Contains(md, "\u200b") {
		t.Errorf("caret anchor leaked: %q", md)
	}
}

func TestPlainText(t *testing.T) {
	text, err := PlainText("<h1>Title</h1><p>One  two\nthree</p><p>\u200b</p>")
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if text != "Title\n\nOne two three" {
		t.Errorf("text = %q", text)
	}
}

func TestWordCount(t *testing.T) {
	n, err := WordCount("<p>Hello, world. It's well-known</p>")
	if err != nil {
		t.Fatalf("WordCount: %v", err)
	}
	if n != 4 {
		t.Errorf("WordCount = %d, want 4", n)
	}
}
