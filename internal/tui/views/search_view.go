package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/search"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView runs keyword searches and lists ranked results across platforms.
type SearchView struct {
	*tview.Flex
	theme     *ui.Theme
	input     *tview.InputField
	results   *tview.Table
	onQuery   func(query string)
	onCancel  func()
	data      []backend.SearchResult
	query     string
	mode      search.Mode
	searching bool
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			if sv.onQuery != nil {
				sv.onQuery(sv.input.GetText())
			}
		case tcell.KeyEscape:
			if sv.onCancel != nil {
				sv.onCancel()
			}
		}
	})

	sv.render()
	return sv
}

// Name implements Component.
func (sv *SearchView) Name() string { return "Search" }

// Hints implements Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback when a search query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
}

// SetOnCancel sets the callback when Esc is pressed in the input.
func (sv *SearchView) SetOnCancel(fn func()) {
	sv.onCancel = fn
}

// Update replaces the results shown. Results keep the backend's ranking.
func (sv *SearchView) Update(query string, mode search.Mode, results []backend.SearchResult, searching bool) {
	if query != sv.query || mode != sv.mode {
		sv.results.Select(1, 0)
	}
	sv.query, sv.mode = query, mode
	sv.data = results
	sv.searching = searching
	if sv.input.GetText() == "" && mode == search.Keyword {
		sv.input.SetText(query)
	}
	sv.render()
}

func (sv *SearchView) render() {
	sv.results.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" CONVERSATION", 1},
		{" PLATFORM", 0},
		{" FROM", 0},
		{" MESSAGE", 3},
		{" TIME", 0},
	}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	for i, r := range sv.data {
		row := i + 1
		m := r.MessageDetails
		sv.results.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", row)).SetTextColor(sv.theme.CounterColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(clean(r.ConversationName))).SetExpansion(1).SetMaxWidth(30).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+string(r.Platform)).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 3, tview.NewTableCell(" "+tview.Escape(clean(m.Sender))).SetMaxWidth(20).SetTextColor(sv.theme.SenderColor))
		sv.results.SetCell(row, 4, tview.NewTableCell(" "+tview.Escape(cellText(m))).SetExpansion(3).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 5, tview.NewTableCell(" "+formatTimestamp(m.TimestampMillis)).SetAlign(tview.AlignRight).SetTextColor(sv.theme.FgColor))
	}

	sv.results.SetTitle(sv.title())
}

func (sv *SearchView) title() string {
	if sv.query == "" {
		return " Results "
	}
	q := tview.Escape(sv.query)
	if sv.searching {
		return fmt.Sprintf(" Results %s %q searching... ", sv.mode, q)
	}
	return fmt.Sprintf(" Results %s %q (%d) ", sv.mode, q, len(sv.data))
}

// SelectedIndex returns the position of the selected result in the ranked
// list, or -1 when nothing is selected.
func (sv *SearchView) SelectedIndex() int {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(sv.data) {
		return -1
	}
	return idx
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
