// Package content implements the article body pipeline: HTML normalization,
// the fixed block style taxonomy, image tracking and the block-type state
// machine that drives editor key and format events.
package content

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// BlockType is the semantic kind of a top-level block.
type BlockType int

const (
	Unknown BlockType = iota
	Paragraph
	Heading1
	Heading2
	Quote
	InfoBlock
	Blockquote
)

var blockNames = map[BlockType]string{
	Unknown:    "unknown",
	Paragraph:  "paragraph",
	Heading1:   "heading1",
	Heading2:   "heading2",
	Quote:      "quote",
	InfoBlock:  "info",
	Blockquote: "blockquote",
}

func (b BlockType) String() string {
	if s, ok := blockNames[b]; ok {
		return s
	}
	return "unknown"
}

// ParseBlockType is the inverse of String. Unrecognized names map to Unknown.
func ParseBlockType(s string) BlockType {
	for bt, name := range blockNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return bt
		}
	}
	return Unknown
}

// Tag returns the HTML element a block type is stored as.
func (b BlockType) Tag() atom.Atom {
	switch b {
	case Heading1:
		return atom.H1
	case Heading2:
		return atom.H2
	case Quote:
		return atom.H6
	case InfoBlock:
		return atom.Pre
	case Blockquote:
		return atom.Blockquote
	default:
		return atom.P
	}
}

// BlockTypeOf maps an element to its block type. h6 is the quote block.
func BlockTypeOf(a atom.Atom) BlockType {
	switch a {
	case atom.P:
		return Paragraph
	case atom.H1:
		return Heading1
	case atom.H2:
		return Heading2
	case atom.H6:
		return Quote
	case atom.Pre:
		return InfoBlock
	case atom.Blockquote:
		return Blockquote
	default:
		return Unknown
	}
}

// IsSpecial reports whether Enter inside the block resets to a paragraph.
func (b BlockType) IsSpecial() bool {
	switch b {
	case Heading1, Heading2, Quote, InfoBlock, Blockquote:
		return true
	}
	return false
}

// InlineMark is an inline formatting span inside a block.
type InlineMark int

const (
	NoMark InlineMark = iota
	Bold
	Italic
	Underline
)

var markNames = map[InlineMark]string{
	NoMark:    "",
	Bold:      "bold",
	Italic:    "italic",
	Underline: "underline",
}

func (m InlineMark) String() string { return markNames[m] }

// ParseInlineMark accepts the mark names plus the widget's tag aliases.
func ParseInlineMark(s string) InlineMark {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bold", "strong", "b":
		return Bold
	case "italic", "em", "i":
		return Italic
	case "underline", "u":
		return Underline
	}
	return NoMark
}

// StyleProfile is the fixed typography of a block type.
type StyleProfile struct {
	FontFamily string
	FontSize   string
	FontWeight string
	FontStyle  string
	Color      string
	Background string
	// Extra holds layout declarations (borders, padding) in render order.
	Extra [][2]string
}

// CSS renders the profile as a style attribute value. Output order is fixed
// so that equal profiles always produce byte-identical attributes.
func (p StyleProfile) CSS() string {
	var b strings.Builder
	decl := func(k, v string) {
		if v == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte(';')
	}
	decl("font-family", p.FontFamily)
	decl("font-size", p.FontSize)
	decl("font-weight", p.FontWeight)
	decl("font-style", p.FontStyle)
	decl("color", p.Color)
	decl("background-color", p.Background)
	for _, kv := range p.Extra {
		decl(kv[0], kv[1])
	}
	return b.String()
}

const (
	serifStack = "Georgia, Times New Roman, serif"
	sansStack  = "Helvetica Neue, Arial, sans-serif"
)

var profiles = map[BlockType]StyleProfile{
	Paragraph: {
		FontFamily: serifStack,
		FontSize:   "18px",
		FontWeight: "normal",
		FontStyle:  "normal",
		Color:      "#222222",
		Background: "transparent",
	},
	Heading1: {
		FontFamily: sansStack,
		FontSize:   "32px",
		FontWeight: "bold",
		FontStyle:  "normal",
		Color:      "#111111",
		Background: "transparent",
	},
	Heading2: {
		FontFamily: sansStack,
		FontSize:   "24px",
		FontWeight: "bold",
		FontStyle:  "normal",
		Color:      "#111111",
		Background: "transparent",
	},
	Quote: {
		FontFamily: serifStack,
		FontSize:   "22px",
		FontWeight: "normal",
		FontStyle:  "italic",
		Color:      "#8a1c1c",
		Background: "transparent",
		Extra:      [][2]string{{"border-left", "4px solid #8a1c1c"}, {"padding-left", "16px"}},
	},
	InfoBlock: {
		FontFamily: sansStack,
		FontSize:   "16px",
		FontWeight: "normal",
		FontStyle:  "normal",
		Color:      "#1f3a5f",
		Background: "#eef3f8",
		Extra:      [][2]string{{"padding", "12px 16px"}, {"white-space", "pre-wrap"}},
	},
	Blockquote: {
		FontFamily: serifStack,
		FontSize:   "18px",
		FontWeight: "normal",
		FontStyle:  "italic",
		Color:      "#444444",
		Background: "#f5f5f5",
		Extra:      [][2]string{{"border-left", "3px solid #cccccc"}, {"padding", "8px 16px"}},
	},
}

// ProfileFor returns the fixed profile of a block type. Unknown blocks get
// the paragraph profile.
func ProfileFor(b BlockType) StyleProfile {
	if p, ok := profiles[b]; ok {
		return p
	}
	return profiles[Paragraph]
}

// StyledBlockTypes lists the block types that carry a profile, in taxonomy order.
func StyledBlockTypes() []BlockType {
	return []BlockType{Paragraph, Heading1, Heading2, Quote, InfoBlock, Blockquote}
}
