package views

import (
	"fmt"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays detailed information about a directory entry.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
	name  string
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Hints implements Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "Esc", Description: "Back"},
	}
}

// InternalName returns the conversation currently described.
func (ci *ConversationInfo) InternalName() string { return ci.name }

// Update renders conversation details.
func (ci *ConversationInfo) Update(p backend.Platform, c backend.Conversation) {
	ci.Clear()
	ci.name = c.InternalName

	fg := ui.Hex(ci.theme.FgColor)
	ct := ui.Hex(ci.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(terminalText(value)))
	}

	_, _ = fmt.Fprintln(ci)
	row("Name", c.DisplayName)
	row("Internal name", c.InternalName)
	row("Platform", string(p))
	if m := c.LastMessage; m != nil {
		row("Last activity", formatTimestamp(m.TimestampMillis))
		row("Last sender", m.Sender)
		row("Last message", cellText(*m))
		row("Document", m.DocumentID)
	} else {
		row("Last message", "")
	}

	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(terminalText(conversationTitle(c)))))
}
