package views

import (
	"fmt"

	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

type helpEntry struct {
	key  string
	text string
}

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Global Keys", []helpEntry{
		{":", "Command mode"},
		{"Esc", "Cancel / Go back"},
		{"s", "Search all platforms"},
		{"p", "Next platform"},
		{"r", "Reload conversations"},
		{"?", "Help"},
		{"q", "Quit / Back"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Conversation List", []helpEntry{
		{"Enter", "Open at latest message"},
		{"/", "Filter by name or message"},
		{"0", "Clear filter"},
		{"d", "Conversation details"},
	}},
	{"Search", []helpEntry{
		{"Enter", "Run query / open result"},
		{"c", "Clear results"},
	}},
	{"Message Thread", []helpEntry{
		{"[", "Earlier messages"},
		{"]", "Later messages"},
		{"j/k", "Scroll"},
	}},
	{"Commands (: mode)", []helpEntry{
		{":platform <name>", "Switch platform (instagram, whatsapp, wechat, line)"},
		{":search <query>", "Keyword search"},
		{":near <range> <query>", "Proximity search"},
		{":open <name>", "Open conversation by internal name"},
		{":clear", "Clear search results"},
		{":reload", "Reload conversations"},
		{":help / :h", "Show this help"},
		{":quit / :q", "Quit application"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.Hex(hv.theme.MenuKeyColor)
	for _, s := range helpSections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			_, _ = fmt.Fprintf(hv, "  [%s]%-24s[-:-:-] %s\n", kc, tview.Escape(e.key), e.text)
		}
	}
}
