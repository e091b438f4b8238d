package content

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// protectedTags keep their own typography through paste post-processing.
var protectedTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H6: true, atom.Pre: true,
	atom.Blockquote: true, atom.Img: true, atom.A: true, atom.Strong: true,
	atom.Em: true, atom.U: true, atom.Br: true,
}

// PreparePaste is the pre-process step: the incoming fragment is normalized
// before it touches the document.
func PreparePaste(fragment string) (string, error) {
	return Normalize(fragment)
}

// InsertFragment merges a prepared fragment after the block under sel and
// returns the inserted top-level nodes. A placeholder paragraph at sel (one
// holding only the caret anchor) is replaced instead of kept. The selection
// moves to the last inserted block.
func (d *Document) InsertFragment(sel Selection, fragment string) ([]*html.Node, Selection, error) {
	frag, err := parseFragment(fragment)
	if err != nil {
		return nil, sel, err
	}
	block, ok := d.BlockAt(sel)
	anchor := block.Node

	var inserted []*html.Node
	for c := frag.FirstChild; c != nil; {
		next := c.NextSibling
		frag.RemoveChild(c)
		d.insertAfter(anchor, c)
		anchor = c
		if c.Type == html.ElementNode {
			inserted = append(inserted, c)
		}
		c = next
	}

	if ok && len(inserted) > 0 && isPlaceholder(block.Node) {
		d.root.RemoveChild(block.Node)
	}
	if len(inserted) > 0 {
		sel.Block = d.indexOf(inserted[len(inserted)-1])
	}
	return inserted, sel, nil
}

func isPlaceholder(n *html.Node) bool {
	if n.DataAtom != atom.P || hasElementChild(n) {
		return false
	}
	text := textContent(n)
	for _, r := range text {
		if r != '\u200b' && r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// FinalizePaste is the post-process step: every inserted element outside
// the protected set is forced onto canonical paragraph typography.
func FinalizePaste(nodes []*html.Node) {
	css := ProfileFor(Paragraph).CSS()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if !protectedTags[n.DataAtom] {
			setAttr(n, "style", css)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
}
