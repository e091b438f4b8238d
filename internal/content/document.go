package content

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an article body held as a parsed fragment.
type Document struct {
	root *html.Node
}

// Block is a top-level element of a document.
type Block struct {
	Type BlockType
	Node *html.Node
}

// Selection points at a top-level block by index. An index outside the
// document is ambiguous and gets paragraph behaviour.
type Selection struct {
	Block int `json:"block"`
}

// ParseDocument parses an HTML fragment into a Document.
func ParseDocument(s string) (*Document, error) {
	root, err := parseFragment(s)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// HTML serializes the document.
func (d *Document) HTML() (string, error) {
	return renderFragment(d.root)
}

// Blocks returns the top-level elements in order.
func (d *Document) Blocks() []Block {
	var out []Block
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, Block{Type: BlockTypeOf(c.DataAtom), Node: c})
		}
	}
	return out
}

// BlockAt returns the block under sel.
func (d *Document) BlockAt(sel Selection) (Block, bool) {
	blocks := d.Blocks()
	if sel.Block < 0 || sel.Block >= len(blocks) {
		return Block{}, false
	}
	return blocks[sel.Block], true
}

// TypeAt is the block type under sel; Unknown when the selection is ambiguous.
func (d *Document) TypeAt(sel Selection) BlockType {
	b, ok := d.BlockAt(sel)
	if !ok {
		return Unknown
	}
	return b.Type
}

func (d *Document) indexOf(n *html.Node) int {
	for i, b := range d.Blocks() {
		if b.Node == n {
			return i
		}
	}
	return -1
}

// insertAfter places n after anchor, or at the end when anchor is nil.
func (d *Document) insertAfter(anchor, n *html.Node) {
	if anchor == nil || anchor.NextSibling == nil {
		d.root.AppendChild(n)
		return
	}
	d.root.InsertBefore(n, anchor.NextSibling)
}

// Apply runs actions against the block under sel and returns the resulting
// selection. Paste actions are handled by Paste and ignored here.
func (d *Document) Apply(sel Selection, actions []Action) (Selection, error) {
	block, ok := d.BlockAt(sel)
	var inserted *html.Node

	for _, a := range actions {
		switch a {
		case InsertParagraphAfter:
			inserted = placeholderParagraph(ProfileFor(Paragraph))
			d.insertAfter(block.Node, inserted)

		case InsertInheritedParagraphAfter:
			profile := ProfileFor(Paragraph)
			if ok {
				profile.Color, profile.Background = computedColors(block.Node, block.Type)
			}
			inserted = placeholderParagraph(profile)
			d.insertAfter(block.Node, inserted)

		case MoveSelectionToNext:
			if inserted != nil {
				sel.Block = d.indexOf(inserted)
			} else if ok {
				sel.Block++
			}

		case ConvertToParagraph:
			if ok {
				rename(block.Node, atom.P)
				block.Type = Paragraph
			}

		case StripInlineFormatting:
			if ok {
				stripInline(block.Node)
			}

		case ApplyCanonicalTypography:
			if ok {
				setAttr(block.Node, "style", ProfileFor(BlockTypeOf(block.Node.DataAtom)).CSS())
			}

		case StripBold:
			if ok {
				stripBlockBold(block.Node, block.Type)
			}

		case PreProcessPaste, PostProcessPaste:

		default:
			return sel, fmt.Errorf("content: unknown action %d", a)
		}
	}
	return sel, nil
}

func placeholderParagraph(profile StyleProfile) *html.Node {
	p := newElement(atom.P)
	p.Attr = []html.Attribute{{Key: "style", Val: profile.CSS()}}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: zeroWidthSpace})
	return p
}

// computedColors resolves color and background the way a browser cascade
// would for this tree: the nearest inline declaration wins, then the fixed
// profile of the block type.
func computedColors(n *html.Node, bt BlockType) (color, background string) {
	for cur := n; cur != nil && cur.DataAtom != atom.Body; cur = cur.Parent {
		style, _ := attr(cur, "style")
		decls := parseDeclarations(style)
		if color == "" {
			color = decls["color"]
		}
		if background == "" {
			if v := decls["background-color"]; v != "" {
				background = v
			} else {
				background = decls["background"]
			}
		}
	}
	profile := ProfileFor(bt)
	if color == "" {
		color = profile.Color
	}
	if background == "" {
		background = profile.Background
	}
	return color, background
}

var inlineFormatting = map[atom.Atom]bool{
	atom.Strong: true, atom.B: true, atom.Em: true, atom.I: true, atom.U: true,
	atom.S: true, atom.Strike: true, atom.Mark: true, atom.Span: true,
	atom.Font: true, atom.Sub: true, atom.Sup: true, atom.Small: true, atom.Big: true,
}

// stripInline unwraps formatting marks below n and drops their inline styles.
func stripInline(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if inlineFormatting[c.DataAtom] {
				if first := unwrap(c); first != nil {
					next = first
				}
				c = next
				continue
			}
			removeAttr(c, "style")
			removeAttr(c, "class")
			stripInline(c)
		}
		c = next
	}
}

// stripBlockBold removes bold applied to the block as a whole: a weight
// override on the block itself, or a single bold mark spanning all of its
// text. Bold marks on part of the text are left alone.
func stripBlockBold(n *html.Node, bt BlockType) {
	if style, ok := attr(n, "style"); ok {
		if w := parseDeclarations(style)["font-weight"]; w != "" && w != ProfileFor(bt).FontWeight {
			setAttr(n, "style", ProfileFor(bt).CSS())
		}
	}
	for {
		var only *html.Node
		count := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				only = c
				count++
			case html.TextNode:
				if !isBlank(c.Data) {
					count += 2
				}
			}
		}
		if count != 1 || (only.DataAtom != atom.Strong && only.DataAtom != atom.B) {
			return
		}
		unwrap(only)
	}
}
