package content

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"
)

func styled(tag, inner string) string {
	bt := BlockTypeOf(atomFor(tag))
	return "<" + tag + ` style="` + ProfileFor(bt).CSS() + `">` + inner + "</" + tag + ">"
}

func atomFor(tag string) atom.Atom {
	return atom.Lookup([]byte(tag))
}

func mustNormalize(t *testing.T, in string) string {
	t.Helper()
	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", in, err)
	}
	return out
}

func TestNormalize_Rewrites(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "div with style and class",
			in:   `<div style="color:red" class="x">Hello</div>`,
			want: styled("p", "Hello"),
		},
		{
			name: "section and article",
			in:   `<section>One</section><article>Two</article>`,
			want: styled("p", "One") + styled("p", "Two"),
		},
		{
			name: "demoted headings",
			in:   `<h3>Three</h3><h4>Four</h4><h5>Five</h5>`,
			want: styled("p", "Three") + styled("p", "Four") + styled("p", "Five"),
		},
		{
			name: "kept block types",
			in:   `<h1>A</h1><h2>B</h2><h6>C</h6><pre>D</pre><blockquote>E</blockquote>`,
			want: styled("h1", "A") + styled("h2", "B") + styled("h6", "C") + styled("pre", "D") + styled("blockquote", "E"),
		},
		{
			name: "span inside heading is unwrapped",
			in:   `<h1><span style="font-size:40px;color:blue">Title</span></h1>`,
			want: styled("h1", "Title"),
		},
		{
			name: "top-level span becomes its own paragraph",
			in:   `<span style="color:red">Suelto</span><p>Bloque</p>`,
			want: styled("p", "Suelto") + styled("p", "Bloque"),
		},
		{
			name: "span inside paragraph leaves the text in place",
			in:   `<p>Uno <span class="x">dos</span> tres</p>`,
			want: styled("p", "Uno dos tres"),
		},
		{
			name: "css text removed",
			in:   `<p>font-family: Arial; Texto</p>`,
			want: styled("p", " Texto"),
		},
		{
			name: "css text nested match",
			in:   `<p>Hola font-font-size: 2px;family: x;mundo</p>`,
			want: styled("p", "Hola mundo"),
		},
		{
			name: "empty paragraphs removed",
			in:   `<p></p><p> </p><p>Keep</p>`,
			want: styled("p", "Keep"),
		},
		{
			name: "line break paragraph kept",
			in:   `<p><br></p>`,
			want: styled("p", "<br/>"),
		},
		{
			name: "bare text wrapped",
			in:   `Hello <b>world</b>`,
			want: styled("p", "Hello <strong>world</strong>"),
		},
		{
			name: "script dropped",
			in:   `<p>a<script>alert(1)</script></p>`,
			want: styled("p", "a"),
		},
		{
			name: "unsafe link",
			in:   `<a href="javascript:alert(1)" onclick="x()">x</a>`,
			want: styled("p", "<a>x</a>"),
		},
		{
			name: "image attributes",
			in:   `<p><img src="/a.jpg" style="width:10px" class="wp" alt="A"></p>`,
			want: styled("p", `<img src="/a.jpg" alt="A"/>`),
		},
		{
			name: "word processor wrapper",
			in: `<b style="font-weight:normal" id="docs-internal-guid-1"><p dir="ltr">` +
				`<span style="font-size:11pt">One</span></p><p dir="ltr"><span>Two</span></p></b>`,
			want: styled("p", "One") + styled("p", "Two"),
		},
		{
			name: "italic renamed",
			in:   `<p><i>x</i> <u>y</u></p>`,
			want: styled("p", "<em>x</em> <u>y</u>"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustNormalize(t, tc.in)
			if got != tc.want {
				t.Errorf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

var messyInputs = []string{
	``,
	`plain text`,
	`<p>unclosed <b>bold <i>both</p> tail`,
	`<div><div><span>deep</span></div><h4>x</h4></div>`,
	`<h1><span><h2>nested heading</h2></span></h1>`,
	`<a href="/x"><div>block in link</div></a>`,
	`<ul><li><div>item</div></li><li><span style="color:red">two</span></li></ul>`,
	`<table><tr><td><div>cell</div></td></tr></table>`,
	`<p style="color: red">color: blue; background: red; Texto</p>`,
	`<pre>
code</pre>`,
	`<blockquote><p>q</p><div>r</div></blockquote>`,
	"<p>&nbsp;</p><p>\u200b</p>",
	`<font face="Arial" color="red">legacy</font><center>x</center>`,
	`<strong><h1>bold heading</h1></strong>`,
	`<!-- comment --><svg><circle/></svg><p>after</p>`,
	`<h6>Quote</h6><pre style="font-weight:bold">Info</pre>`,
	`<em><p>a</p></em><p><span><span>b</span></span></p>`,
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range messyInputs {
		once := mustNormalize(t, in)
		twice := mustNormalize(t, once)
		if once != twice {
			t.Errorf("not idempotent for %q\nonce  %s\ntwice %s", in, once, twice)
		}
	}
}

func TestNormalize_StyleInvariant(t *testing.T) {
	for _, in := range messyInputs {
		out := mustNormalize(t, in)
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
		if err != nil {
			t.Fatalf("parse output: %v", err)
		}
		doc.Find("p, h1, h2, h6, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
			tag := goquery.NodeName(s)
			want := ProfileFor(BlockTypeOf(atomFor(tag))).CSS()
			if got, _ := s.Attr("style"); got != want {
				t.Errorf("input %q: <%s> style = %q, want %q", in, tag, got, want)
			}
		})
		doc.Find("strong, em, u, a, img, span, div, h3, h4, h5, section, article").Each(func(_ int, s *goquery.Selection) {
			if _, ok := s.Attr("style"); ok {
				t.Errorf("input %q: <%s> kept a style attribute", in, goquery.NodeName(s))
			}
			if _, ok := s.Attr("class"); ok {
				t.Errorf("input %q: <%s> kept a class attribute", in, goquery.NodeName(s))
			}
		})
		if n := doc.Find("div, span, section, article, h3, h4, h5").Length(); n != 0 {
			t.Errorf("input %q: %d legacy elements left in %s", in, n, out)
		}
	}
}

func TestNormalize_NoStyleLeakBetweenBlocks(t *testing.T) {
	out := mustNormalize(t, `<p style="color:#ff0000;background:#000">red</p><p>plain</p>`)
	if strings.Contains(out, "#ff0000") || strings.Contains(out, "#000;") {
		t.Errorf("inline color leaked: %s", out)
	}
}
