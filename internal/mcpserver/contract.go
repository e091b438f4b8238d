package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/gaceta/internal/content"
)

// tagNames are the stored elements of each block type, as authors write them.
var tagNames = map[content.BlockType]string{
	content.Paragraph:  "p",
	content.Heading1:   "h1",
	content.Heading2:   "h2",
	content.Quote:      "h6",
	content.InfoBlock:  "pre",
	content.Blockquote: "blockquote",
}

const contractRules = `
## Rules

1. **Block styles are fixed.** Every block carries exactly the style of its
   type; any other inline style or class is discarded on save.
2. **Inline marks:** ` + "`b`" + ` and ` + "`i`" + ` are stored as ` + "`strong`" + ` and ` + "`em`" + `;
   ` + "`span`" + ` and ` + "`font`" + ` are unwrapped. Scripts, styles and form controls
   are dropped with their content.
3. **Headers:** ` + "`h3`" + `..` + "`h5`" + ` become paragraphs; ` + "`h6`" + ` is the pull-quote block.
4. **Images:** the header image lives in ` + "`imagen_cabecera`" + ` and never appears
   inline. AVIF images are rejected before upload.
5. **Enter** after a heading, quote, info block or blockquote always starts a
   plain paragraph.
6. **Empty paragraphs** are removed on save.
`

// StyleContract describes the article body format: the block taxonomy with
// each block's fixed typography, followed by the editing rules.
func StyleContract() string {
	var b strings.Builder
	b.WriteString("# Gaceta Article Style Contract\n\n")
	b.WriteString("Article bodies are HTML fragments made of top-level blocks.\n\n")
	b.WriteString("## Blocks\n\n")
	b.WriteString("| Block | Element | Style |\n|---|---|---|\n")
	for _, bt := range content.StyledBlockTypes() {
		fmt.Fprintf(&b, "| %s | `%s` | `%s` |\n", bt, tagNames[bt], content.ProfileFor(bt).CSS())
	}
	b.WriteString(contractRules)
	return b.String()
}
