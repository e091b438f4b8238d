package content

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractImages lists the header image (when set) followed by every inline
// <img src> in document order. Repeated URLs are kept; use Ledger.Reconcile
// for set semantics.
func ExtractImages(doc, header string) ([]string, error) {
	root, err := parseFragment(doc)
	if err != nil {
		return nil, err
	}
	var out []string
	if header != "" {
		out = append(out, header)
	}
	return append(out, inlineImages(root)...), nil
}

func inlineImages(root *html.Node) []string {
	var out []string
	query(root).Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); src != "" {
			out = append(out, src)
		}
	})
	return out
}

// removeImages drops every <img> whose src equals url exactly.
func removeImages(root *html.Node, url string) int {
	n := 0
	query(root).Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		return ok && src == url
	}).Each(func(_ int, s *goquery.Selection) {
		s.Remove()
		n++
	})
	return n
}

// Reconciliation splits the known images into those the document still
// references and those it no longer does.
type Reconciliation struct {
	InUse    []string `json:"in_use"`
	Orphaned []string `json:"orphaned"`
}

// Ledger tracks the header image and every image URL known to an editing
// session. It is not safe for concurrent use.
type Ledger struct {
	header string
	known  []string
	seen   map[string]struct{}
}

// NewLedger creates a ledger with the given header image and known URLs.
func NewLedger(header string, known ...string) *Ledger {
	l := &Ledger{header: header, seen: make(map[string]struct{})}
	if header != "" {
		l.RecordUpload(header)
	}
	for _, u := range known {
		l.RecordUpload(u)
	}
	return l
}

// Header returns the current header image URL.
func (l *Ledger) Header() string { return l.header }

// Known returns the known URLs in first-seen order.
func (l *Ledger) Known() []string {
	return append([]string(nil), l.known...)
}

// RecordUpload adds url to the known set. It reports whether url was new.
func (l *Ledger) RecordUpload(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := l.seen[url]; ok {
		return false
	}
	l.seen[url] = struct{}{}
	l.known = append(l.known, url)
	return true
}

// Images is ExtractImages with the ledger's header.
func (l *Ledger) Images(doc string) ([]string, error) {
	return ExtractImages(doc, l.header)
}

// SetHeaderImage makes url the header image. A different previous header is
// put back into the body as an inline image so it is not lost; inline copies
// of url are removed. An empty url clears the header.
func (l *Ledger) SetHeaderImage(doc, url string) (string, error) {
	root, err := parseFragment(doc)
	if err != nil {
		return "", err
	}
	if old := l.header; old != "" && old != url {
		p := newElement(atom.P)
		img := newElement(atom.Img)
		img.Attr = []html.Attribute{{Key: "src", Val: old}}
		p.AppendChild(img)
		root.InsertBefore(p, root.FirstChild)
	}
	if url != "" {
		removeImages(root, url)
		l.RecordUpload(url)
	}
	out, err := renderFragment(root)
	if err != nil {
		return "", err
	}
	l.header = url
	return out, nil
}

// RemoveImage removes inline occurrences of url. The header slot is left
// alone.
func (l *Ledger) RemoveImage(doc, url string) (string, error) {
	return RemoveImage(doc, url)
}

// RemoveImage removes every <img> whose src equals url exactly.
func RemoveImage(doc, url string) (string, error) {
	root, err := parseFragment(doc)
	if err != nil {
		return "", err
	}
	removeImages(root, url)
	return renderFragment(root)
}

// DetachHeader removes inline copies of the header image, restoring the
// invariant that the header never appears inline.
func (l *Ledger) DetachHeader(doc string) (string, error) {
	if l.header == "" {
		return doc, nil
	}
	return RemoveImage(doc, l.header)
}

// Reconcile compares the known set with what doc references.
func (l *Ledger) Reconcile(doc string) (Reconciliation, error) {
	imgs, err := l.Images(doc)
	if err != nil {
		return Reconciliation{}, err
	}
	inUse := make(map[string]struct{}, len(imgs))
	rec := Reconciliation{InUse: []string{}, Orphaned: []string{}}
	for _, u := range imgs {
		if _, ok := inUse[u]; ok {
			continue
		}
		inUse[u] = struct{}{}
		rec.InUse = append(rec.InUse, u)
	}
	for _, u := range l.known {
		if _, ok := inUse[u]; !ok {
			rec.Orphaned = append(rec.Orphaned, u)
		}
	}
	return rec, nil
}
