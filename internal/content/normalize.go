package content

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxPasses bounds the fixed-point loop in Normalize. Real input settles in
// two or three passes.
const maxPasses = 8

var (
	// dropTags are removed together with their contents.
	dropTags = map[atom.Atom]bool{
		atom.Script: true, atom.Style: true, atom.Noscript: true,
		atom.Meta: true, atom.Link: true, atom.Title: true, atom.Head: true,
		atom.Template: true, atom.Object: true, atom.Embed: true, atom.Base: true,
		atom.Button: true, atom.Input: true, atom.Select: true, atom.Textarea: true,
		atom.Option: true, atom.Optgroup: true, atom.Frame: true, atom.Frameset: true,
	}

	// sectioningTags are rewritten to paragraphs, or unwrapped when they
	// hold blocks or already sit in phrasing context. The list covers every
	// start tag that implicitly closes an open paragraph.
	sectioningTags = map[atom.Atom]bool{
		atom.Div: true, atom.Section: true, atom.Article: true, atom.Header: true,
		atom.Footer: true, atom.Main: true, atom.Aside: true, atom.H3: true,
		atom.H4: true, atom.H5: true,
		atom.Address: true, atom.Center: true, atom.Details: true, atom.Dialog: true,
		atom.Dir: true, atom.Fieldset: true, atom.Hgroup: true, atom.Menu: true,
		atom.Nav: true, atom.Summary: true, atom.Listing: true, atom.Xmp: true,
		atom.Plaintext: true, atom.Form: true,
	}

	// wrapperTags carry only presentation and are always unwrapped. A
	// top-level run still ends up in its own p through wrapInlineRuns; a p
	// inside another text block would not survive a reparse.
	wrapperTags = map[atom.Atom]bool{
		atom.Span: true, atom.Font: true,
	}

	// textBlocks never contain other paragraphs.
	textBlocks = map[atom.Atom]bool{
		atom.P: true, atom.H1: true, atom.H2: true, atom.H6: true, atom.Pre: true,
	}

	// blockLevel elements stand on their own at the top level; everything
	// else is wrapped into a paragraph.
	blockLevel = map[atom.Atom]bool{
		atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
		atom.H5: true, atom.H6: true, atom.Pre: true, atom.Blockquote: true,
		atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true,
		atom.Dd: true, atom.Table: true, atom.Figure: true, atom.Hr: true,
		atom.Div: true, atom.Section: true, atom.Article: true, atom.Header: true,
		atom.Footer: true, atom.Main: true, atom.Aside: true, atom.Thead: true,
		atom.Tbody: true, atom.Tfoot: true, atom.Tr: true, atom.Td: true, atom.Th: true,
		atom.Caption: true, atom.Figcaption: true,
	}

	inlineRenames = map[atom.Atom]atom.Atom{
		atom.B: atom.Strong,
		atom.I: atom.Em,
	}

	allowedAttrs = map[atom.Atom]map[string]bool{
		atom.A:      {"href": true, "title": true, "target": true, "rel": true},
		atom.Img:    {"src": true, "alt": true, "title": true, "width": true, "height": true},
		atom.Iframe: {"src": true, "width": true, "height": true, "allow": true, "allowfullscreen": true, "frameborder": true, "title": true},
		atom.Td:     {"colspan": true, "rowspan": true},
		atom.Th:     {"colspan": true, "rowspan": true},
		atom.Ol:     {"start": true},
	}

	urlAttrs = map[string]bool{"href": true, "src": true}

	// cssTextRe matches raw typography declarations that leak into text,
	// typically from word-processor pastes.
	cssTextRe = regexp.MustCompile(`(?i)\b(?:font(?:-family|-size|-weight|-style|-variant)?|color|background(?:-color|-image)?|line-height|text-decoration)\s*:[^;<>{}]*;`)
)

// Normalize cleans an HTML fragment: disallowed tags and attributes go,
// legacy containers become paragraphs, stray CSS text is removed and every
// block gets the fixed style of its type. Normalize is idempotent.
func Normalize(raw string) (string, error) {
	cur := raw
	for i := 0; i < maxPasses; i++ {
		next, err := normalizePass(cur)
		if err != nil {
			return "", err
		}
		if next == cur {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

func normalizePass(s string) (string, error) {
	root, err := parseFragment(s)
	if err != nil {
		return "", err
	}
	clean(root, false)
	wrapInlineRuns(root)
	removeEmptyParagraphs(root)
	applyProfiles(root)
	return renderFragment(root)
}

// clean walks the children of n. inPhrasing is set below text blocks and
// inline marks, where a nested block would be split apart on reparse.
func clean(n *html.Node, inPhrasing bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling

		switch c.Type {
		case html.CommentNode, html.DoctypeNode:
			n.RemoveChild(c)

		case html.TextNode:
			c.Data = stripCSSText(c.Data)
			if c.Data == "" {
				n.RemoveChild(c)
			}

		case html.ElementNode:
			if dropTags[c.DataAtom] || c.Namespace != "" {
				n.RemoveChild(c)
				break
			}
			if wrapperTags[c.DataAtom] || inPhrasing && (blockLevel[c.DataAtom] || sectioningTags[c.DataAtom]) {
				if first := unwrap(c); first != nil {
					next = first
				}
				break
			}
			if sectioningTags[c.DataAtom] {
				if containsBlock(c) {
					if first := unwrap(c); first != nil {
						next = first
					}
					break
				}
				rename(c, atom.P)
			}
			if to, ok := inlineRenames[c.DataAtom]; ok {
				rename(c, to)
			}
			if !blockLevel[c.DataAtom] && containsBlock(c) {
				if first := unwrap(c); first != nil {
					next = first
				}
				break
			}
			filterAttrs(c)
			clean(c, inPhrasing || textBlocks[c.DataAtom] || !blockLevel[c.DataAtom])
		}

		c = next
	}
}

func stripCSSText(s string) string {
	for {
		out := cssTextRe.ReplaceAllString(s, "")
		if out == s {
			return out
		}
		s = out
	}
}

func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if blockLevel[c.DataAtom] || containsBlock(c) {
			return true
		}
	}
	return false
}

func filterAttrs(n *html.Node) {
	allowed := allowedAttrs[n.DataAtom]
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || !allowed[a.Key] {
			continue
		}
		if urlAttrs[a.Key] && unsafeURL(a.Val) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func unsafeURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:")
}

// wrapInlineRuns gathers consecutive top-level inline nodes into paragraphs
// and drops whitespace between blocks.
func wrapInlineRuns(root *html.Node) {
	var run *html.Node
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.ElementNode && blockLevel[c.DataAtom]:
			run = nil
		case c.Type == html.TextNode && run == nil && isBlank(c.Data):
			root.RemoveChild(c)
		default:
			if run == nil {
				run = newElement(atom.P)
				root.InsertBefore(run, c)
			}
			root.RemoveChild(c)
			run.AppendChild(c)
		}
		c = next
	}
}

func removeEmptyParagraphs(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			removeEmptyParagraphs(c)
			if c.DataAtom == atom.P && !hasElementChild(c) && isBlank(textContent(c)) {
				n.RemoveChild(c)
			}
		}
		c = next
	}
}

func applyProfiles(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if bt := BlockTypeOf(c.DataAtom); bt != Unknown {
			setAttr(c, "style", ProfileFor(bt).CSS())
		}
		applyProfiles(c)
	}
}
