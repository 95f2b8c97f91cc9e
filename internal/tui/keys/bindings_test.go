package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestViewBindingShadowsGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global" }})
	r.AddView("thread", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "thread" }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	if !r.HandleEvent("thread", ev) {
		t.Fatal("event not handled")
	}
	if got != "thread" {
		t.Errorf("handler = %q, want thread", got)
	}
	if !r.HandleEvent("conversations", ev) {
		t.Fatal("event not handled")
	}
	if got != "global" {
		t.Errorf("handler = %q, want global", got)
	}
}

func TestUnmatchedEvent(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() {}})
	if r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unexpected match for 'x'")
	}
	if r.HandleEvent("conversations", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Error("unexpected match for Enter")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyCtrlL, Description: "Redraw"})
	r.AddView("thread", &Action{Key: tcell.KeyRune, Rune: '[', Description: "Earlier", Visible: true})
	r.AddView("thread", &Action{Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true})

	hints := r.Hints("thread")
	want := []string{"[", "Esc", "?", "q"}
	if len(hints) != len(want) {
		t.Fatalf("got %d hints, want %d", len(hints), len(want))
	}
	for i, h := range hints {
		if h.Key != want[i] {
			t.Errorf("hint %d key = %q, want %q", i, h.Key, want[i])
		}
	}
	if got := len(r.Hints("conversations")); got != 2 {
		t.Errorf("conversations hints = %d, want 2", got)
	}
}
