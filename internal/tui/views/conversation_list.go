package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the conversation directory of the selected platform.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	convs    []backend.Conversation
	visible  []int
	platform backend.Platform
	loading  bool
	filter   string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string {
	if cl.platform == "" {
		return "Conversations"
	}
	return fmt.Sprintf("Conversations(%s)", cl.platform)
}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
	}
}

// Update replaces the directory shown. The list is never merged with the
// previous platform's entries.
func (cl *ConversationList) Update(p backend.Platform, convs []backend.Conversation, loading bool) {
	if p != cl.platform {
		cl.filter = ""
		cl.Select(1, 0)
	}
	cl.platform = p
	cl.convs = convs
	cl.loading = loading
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.SetFilter("")
}

// Filter returns the active filter text.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) matches(c backend.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	if containsFold(conversationTitle(c), cl.filter) || containsFold(c.InternalName, cl.filter) {
		return true
	}
	return c.LastMessage != nil && containsFold(c.LastMessage.Text, cl.filter)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" FROM", 0},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	cl.visible = cl.visible[:0]
	for i, c := range cl.convs {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, i)
		row := len(cl.visible)

		var text, sender, ts string
		color := cl.theme.FgColor
		if c.LastMessage != nil {
			text = cellText(*c.LastMessage)
			sender = clean(c.LastMessage.Sender)
			ts = formatTimestamp(c.LastMessage.TimestampMillis)
		} else {
			text = "(no messages)"
			color = cl.theme.BoundaryColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(clean(conversationTitle(c)))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(text)).SetExpansion(2).SetMaxWidth(60).SetTextColor(color))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sender)).SetMaxWidth(20).SetTextColor(cl.theme.SenderColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+ts).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
	}

	label := "Conversations"
	if cl.platform != "" {
		label = fmt.Sprintf("Conversations [%s]", cl.platform)
	}
	switch {
	case cl.loading:
		cl.SetTitle(fmt.Sprintf(" %s loading... ", tview.Escape(label)))
	case cl.filter != "":
		cl.SetTitle(fmt.Sprintf(" %s (%d/%d) filter: %s ", tview.Escape(label), len(cl.visible), len(cl.convs), tview.Escape(cl.filter)))
	default:
		cl.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(label), len(cl.convs)))
	}
}

// SelectedConversation returns the selected directory entry.
func (cl *ConversationList) SelectedConversation() (backend.Conversation, bool) {
	row, _ := cl.GetSelection()
	return cl.ConversationAt(row)
}

// ConversationAt returns the entry shown on the given table row (1-based,
// row 0 being the header).
func (cl *ConversationList) ConversationAt(row int) (backend.Conversation, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(cl.visible) {
		return backend.Conversation{}, false
	}
	return cl.convs[cl.visible[idx]], true
}
