package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/gcsearch/internal/coordinator"
	"github.com/matheus3301/gcsearch/internal/pager"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays the message window of the open conversation.
type MessageThread struct {
	*tview.TextView
	theme *ui.Theme
	pii   string
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Messages ")
	tv.SetTitleColor(theme.TitleColor)

	return &MessageThread{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.pii != "" {
		return mt.pii
	}
	return "Messages"
}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders the window. Messages are drawn in the order the backend
// returned them, which is chronological.
func (mt *MessageThread) Update(w pager.Window, msgs []coordinator.RenderedMessage) {
	scrollTop := w.PII != mt.pii
	mt.pii = w.PII
	mt.Clear()
	mt.SetTitle(mt.title(w))

	if w.PII == "" {
		mt.marker("no conversation open")
		return
	}
	if w.AtStart {
		mt.marker("start of conversation")
	}
	if len(msgs) == 0 && w.Phase != pager.Loading {
		mt.marker("no messages")
	}

	self := ui.Hex(mt.theme.SelfColor)
	other := ui.Hex(mt.theme.SenderColor)
	anchor := ui.Hex(mt.theme.AnchorColor)
	for _, m := range msgs {
		sender, color := m.Sender, other
		if m.IsCurrentUser {
			sender, color = "You", self
		}
		if sender == "" {
			sender = "unknown"
		}
		mark := ""
		if m.DocumentID == w.AnchorDocID {
			mark = fmt.Sprintf(" [%s]*[-]", anchor)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n",
			color, tview.Escape(terminalText(sender)), formatTimestamp(m.TimestampMillis), mark)
		body, media := messageBody(m.Message)
		if body != "" {
			b.WriteString(tview.Escape(body))
			b.WriteString("\n")
		}
		switch {
		case media != "" && m.ImageURL != "":
			fmt.Fprintf(&b, "[::u]%s:[-:-:-] %s\n", media, tview.Escape(m.ImageURL))
		case media != "":
			fmt.Fprintf(&b, "[::d](%s)[-:-:-]\n", media)
		}
		b.WriteString("\n")
		_, _ = fmt.Fprint(mt, b.String())
	}

	if w.AtEnd {
		mt.marker("end of conversation")
	}
	if scrollTop {
		mt.ScrollToBeginning()
	}
}

func (mt *MessageThread) marker(text string) {
	_, _ = fmt.Fprintf(mt, "[%s]--- %s ---[-]\n\n", ui.Hex(mt.theme.BoundaryColor), text)
}

func (mt *MessageThread) title(w pager.Window) string {
	if w.PII == "" {
		return " Messages "
	}
	name := tview.Escape(terminalText(w.PII))
	if w.Phase == pager.Loading {
		return fmt.Sprintf(" %s loading... ", name)
	}
	return fmt.Sprintf(" %s (%d) offset %+d ", name, len(w.Messages), w.Offset)
}
