package content

import (
	"testing"
)

func paste(t *testing.T, d *Document, sel Selection, fragment string) Selection {
	t.Helper()
	prepared, err := PreparePaste(fragment)
	if err != nil {
		t.Fatalf("PreparePaste: %v", err)
	}
	nodes, sel, err := d.InsertFragment(sel, prepared)
	if err != nil {
		t.Fatalf("InsertFragment: %v", err)
	}
	FinalizePaste(nodes)
	return sel
}

func TestPaste_ReplacesPlaceholder(t *testing.T) {
	d := mustDocument(t, "<h1>T</h1><p>\u200b</p>")
	sel := paste(t, d, Selection{Block: 1}, `<div style="color:red">one</div><h2>two</h2>`)

	want := `<h1>T</h1>` + styled("p", "one") + styled("h2", "two")
	if got := mustHTML(t, d); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if sel.Block != 2 {
		t.Errorf("selection = %d, want 2", sel.Block)
	}
}

func TestPaste_AfterContentBlock(t *testing.T) {
	d := mustDocument(t, `<p>keep</p><p>tail</p>`)
	sel := paste(t, d, Selection{Block: 0}, `pasted`)

	blocks := d.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	if textContent(blocks[0].Node) != "keep" || textContent(blocks[1].Node) != "pasted" || textContent(blocks[2].Node) != "tail" {
		t.Errorf("unexpected order: %s", mustHTML(t, d))
	}
	if sel.Block != 1 {
		t.Errorf("selection = %d, want 1", sel.Block)
	}
}

func TestPaste_ListsGetParagraphTypography(t *testing.T) {
	d := mustDocument(t, "")
	paste(t, d, Selection{}, `<ul><li><b>a</b></li></ul>`)

	css := ProfileFor(Paragraph).CSS()
	root := d.Blocks()[0].Node
	if style, _ := attr(root, "style"); style != css {
		t.Errorf("ul style = %q", style)
	}
	li := root.FirstChild
	if style, _ := attr(li, "style"); style != css {
		t.Errorf("li style = %q", style)
	}
	if _, ok := attr(li.FirstChild, "style"); ok {
		t.Errorf("strong mark was styled")
	}
}

func TestPaste_EmptyFragment(t *testing.T) {
	d := mustDocument(t, "<p>\u200b</p>")
	sel := paste(t, d, Selection{}, `<script>x()</script>`)
	if len(d.Blocks()) != 1 || sel.Block != 0 {
		t.Errorf("empty paste changed the document: %s", mustHTML(t, d))
	}
}
