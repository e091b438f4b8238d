package content

import (
	"strings"
	"testing"
)

func TestBlockType_RoundTrip(t *testing.T) {
	for _, bt := range StyledBlockTypes() {
		if got := ParseBlockType(bt.String()); got != bt {
			t.Errorf("ParseBlockType(%q) = %v", bt.String(), got)
		}
		if got := BlockTypeOf(bt.Tag()); got != bt {
			t.Errorf("BlockTypeOf(%s) = %v, want %v", bt.Tag(), got, bt)
		}
	}
	if got := ParseBlockType("heading3"); got != Unknown {
		t.Errorf("ParseBlockType(heading3) = %v, want unknown", got)
	}
}

func TestProfile_CSSOrder(t *testing.T) {
	css := ProfileFor(Quote).CSS()
	want := "font-family: Georgia, Times New Roman, serif; font-size: 22px; font-weight: normal; " +
		"font-style: italic; color: #8a1c1c; background-color: transparent; " +
		"border-left: 4px solid #8a1c1c; padding-left: 16px;"
	if css != want {
		t.Errorf("CSS = %q\nwant  %q", css, want)
	}
}

func TestProfileFor_UnknownFallsBackToParagraph(t *testing.T) {
	if ProfileFor(Unknown).CSS() != ProfileFor(Paragraph).CSS() {
		t.Errorf("unknown block did not get the paragraph profile")
	}
}

func TestProfiles_Distinct(t *testing.T) {
	seen := map[string]BlockType{}
	for _, bt := range StyledBlockTypes() {
		css := ProfileFor(bt).CSS()
		if prev, ok := seen[css]; ok {
			t.Errorf("%s and %s share a profile", prev, bt)
		}
		seen[css] = bt
		if !strings.Contains(css, "font-family:") || !strings.Contains(css, "color:") {
			t.Errorf("%s profile is incomplete: %q", bt, css)
		}
	}
}

func TestParseInlineMark(t *testing.T) {
	cases := map[string]InlineMark{"bold": Bold, "STRONG": Bold, "b": Bold, "em": Italic, "u": Underline, "sup": NoMark}
	for in, want := range cases {
		if got := ParseInlineMark(in); got != want {
			t.Errorf("ParseInlineMark(%q) = %v, want %v", in, got, want)
		}
	}
}
