package content

import "strings"

// EventKind identifies an editor event fed to the block state machine.
type EventKind int

const (
	EventNone EventKind = iota
	EventEnter
	EventClearFormatting
	EventFormatChanged
	EventPaste
)

var eventNames = map[EventKind]string{
	EventNone:            "none",
	EventEnter:           "enter",
	EventClearFormatting: "clear_formatting",
	EventFormatChanged:   "format_changed",
	EventPaste:           "paste",
}

func (k EventKind) String() string { return eventNames[k] }

// ParseEventKind maps an event name to its kind.
func ParseEventKind(s string) EventKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range eventNames {
		if name == s {
			return k
		}
	}
	return EventNone
}

// Event is an editor event. Mark is set for EventFormatChanged.
type Event struct {
	Kind EventKind
	Mark InlineMark
}

// Action is one step of a transition, executed by Document.Apply.
type Action int

const (
	// InsertParagraphAfter adds a canonical paragraph holding a zero-width
	// caret anchor after the current block.
	InsertParagraphAfter Action = iota + 1
	// InsertInheritedParagraphAfter adds a paragraph that keeps the computed
	// color and background of the current block.
	InsertInheritedParagraphAfter
	MoveSelectionToNext
	ConvertToParagraph
	StripInlineFormatting
	ApplyCanonicalTypography
	StripBold
	PreProcessPaste
	PostProcessPaste
)

var actionNames = map[Action]string{
	InsertParagraphAfter:          "insert_paragraph_after",
	InsertInheritedParagraphAfter: "insert_inherited_paragraph_after",
	MoveSelectionToNext:           "move_selection_to_next",
	ConvertToParagraph:            "convert_to_paragraph",
	StripInlineFormatting:         "strip_inline_formatting",
	ApplyCanonicalTypography:      "apply_canonical_typography",
	StripBold:                     "strip_bold",
	PreProcessPaste:               "pre_process_paste",
	PostProcessPaste:              "post_process_paste",
}

func (a Action) String() string { return actionNames[a] }

// MarshalText lets actions appear by name in JSON.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Transition decides what the editor does for ev inside a block of type
// current. Unknown blocks behave like paragraphs. Headings, quotes, info
// blocks and blockquotes never cascade: Enter always continues with a plain
// paragraph.
func Transition(current BlockType, ev Event) []Action {
	if current == Unknown {
		current = Paragraph
	}
	switch ev.Kind {
	case EventEnter:
		if current.IsSpecial() {
			return []Action{InsertParagraphAfter, MoveSelectionToNext}
		}
		return []Action{InsertInheritedParagraphAfter, MoveSelectionToNext}
	case EventClearFormatting:
		return []Action{ConvertToParagraph, StripInlineFormatting, ApplyCanonicalTypography}
	case EventFormatChanged:
		if ev.Mark == Bold && (current == Paragraph || current == InfoBlock) {
			return []Action{StripBold}
		}
	case EventPaste:
		return []Action{PreProcessPaste, PostProcessPaste}
	}
	return nil
}
