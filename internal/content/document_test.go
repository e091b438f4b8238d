package content

import (
	"strings"
	"testing"
)

func mustDocument(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseDocument(s)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return d
}

func mustHTML(t *testing.T, d *Document) string {
	t.Helper()
	s, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	return s
}

func dispatch(t *testing.T, d *Document, sel Selection, ev Event) Selection {
	t.Helper()
	sel, err := d.Apply(sel, Transition(d.TypeAt(sel), ev))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return sel
}

func TestEnter_AfterHeadingInsertsCanonicalParagraph(t *testing.T) {
	d := mustDocument(t, `<h1>Title</h1>`)
	sel := dispatch(t, d, Selection{Block: 0}, Event{Kind: EventEnter})

	if sel.Block != 1 {
		t.Fatalf("selection = %d, want 1", sel.Block)
	}
	blocks := d.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	b := blocks[1]
	if b.Type != Paragraph {
		t.Errorf("new block type = %s, want paragraph", b.Type)
	}
	if style, _ := attr(b.Node, "style"); style != ProfileFor(Paragraph).CSS() {
		t.Errorf("new block style = %q", style)
	}
	if textContent(b.Node) != zeroWidthSpace {
		t.Errorf("new block text = %q, want caret anchor", textContent(b.Node))
	}
}

func TestEnter_SpecialBlocksNeverCascade(t *testing.T) {
	for _, bt := range []BlockType{Heading2, Quote, InfoBlock, Blockquote} {
		tag := bt.Tag().String()
		d := mustDocument(t, "<"+tag+">x</"+tag+">")
		sel := dispatch(t, d, Selection{}, Event{Kind: EventEnter})
		if got := d.TypeAt(sel); got != Paragraph {
			t.Errorf("Enter in %s produced %s", bt, got)
		}
	}
}

func TestEnter_ParagraphInheritsColors(t *testing.T) {
	d := mustDocument(t, `<p style="color: #ff0000; background-color: #000000">red</p>`)
	sel := dispatch(t, d, Selection{}, Event{Kind: EventEnter})

	b, ok := d.BlockAt(sel)
	if !ok || b.Type != Paragraph {
		t.Fatalf("no paragraph at %d", sel.Block)
	}
	style, _ := attr(b.Node, "style")
	if !strings.Contains(style, "color: #ff0000;") || !strings.Contains(style, "background-color: #000000;") {
		t.Errorf("style did not inherit colors: %q", style)
	}
	if !strings.Contains(style, "font-size: 18px;") {
		t.Errorf("style lost paragraph typography: %q", style)
	}
}

func TestEnter_AmbiguousSelectionAppends(t *testing.T) {
	d := mustDocument(t, `<h1>A</h1><p>B</p>`)
	sel := dispatch(t, d, Selection{Block: 7}, Event{Kind: EventEnter})

	blocks := d.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	if sel.Block != 2 || blocks[2].Type != Paragraph {
		t.Errorf("selection = %d type %s", sel.Block, blocks[2].Type)
	}
	if style, _ := attr(blocks[2].Node, "style"); style != ProfileFor(Paragraph).CSS() {
		t.Errorf("appended paragraph style = %q", style)
	}
}

func TestClearFormatting_Idempotent(t *testing.T) {
	inputs := []string{
		`<h1 style="font-size: 40px"><strong style="color:red">Big</strong> <em>news</em></h1>`,
		`<p>plain</p>`,
		`<pre class="x"><span style="color: blue">info</span> <a href="/a" style="color:red">link</a></pre>`,
	}
	for _, in := range inputs {
		d := mustDocument(t, in)
		dispatch(t, d, Selection{}, Event{Kind: EventClearFormatting})
		once := mustHTML(t, d)
		dispatch(t, d, Selection{}, Event{Kind: EventClearFormatting})
		twice := mustHTML(t, d)
		if once != twice {
			t.Errorf("clear not idempotent for %q\nonce  %s\ntwice %s", in, once, twice)
		}
		if got := d.TypeAt(Selection{}); got != Paragraph {
			t.Errorf("clear left %s for %q", got, in)
		}
	}
}

func TestClearFormatting_Result(t *testing.T) {
	d := mustDocument(t, `<h1 style="font-size: 40px"><strong style="color:red">Big</strong> <em>news</em></h1>`)
	dispatch(t, d, Selection{}, Event{Kind: EventClearFormatting})
	want := styled("p", "Big news")
	if got := mustHTML(t, d); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestStripBold(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"whole block", `<p><strong>All bold</strong></p>`, `<p>All bold</p>`},
		{"nested marks", `<p><b><strong>All</strong></b></p>`, `<p>All</p>`},
		{"partial", `<p>Some <strong>bold</strong> text</p>`, `<p>Some <strong>bold</strong> text</p>`},
		{"italic kept", `<p><em>All</em></p>`, `<p><em>All</em></p>`},
		{"weight override", `<pre style="font-weight: bold">x</pre>`, styled("pre", "x")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustDocument(t, tc.in)
			dispatch(t, d, Selection{}, Event{Kind: EventFormatChanged, Mark: Bold})
			if got := mustHTML(t, d); got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestStripBold_HeadingUntouched(t *testing.T) {
	in := `<h2><strong>Loud</strong></h2>`
	d := mustDocument(t, in)
	dispatch(t, d, Selection{}, Event{Kind: EventFormatChanged, Mark: Bold})
	if got := mustHTML(t, d); got != in {
		t.Errorf("heading changed: %s", got)
	}
}

func TestApply_UnknownAction(t *testing.T) {
	d := mustDocument(t, `<p>x</p>`)
	if _, err := d.Apply(Selection{}, []Action{Action(99)}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
