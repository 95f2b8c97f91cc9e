package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo is the header wordmark. Its last line names the active platform.
type Logo struct {
	*tview.TextView
	theme    *Theme
	platform string
}

func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{TextView: tv, theme: theme}
	l.SetText(l.text())
	return l
}

// SetPlatform redraws the wordmark when p differs from the shown platform.
func (l *Logo) SetPlatform(p string) {
	if p == l.platform {
		return
	}
	l.platform = p
	l.SetText(l.text())
}

func (l *Logo) text() string {
	title, fg := Hex(l.theme.TitleColor), Hex(l.theme.FgColor)
	s := fmt.Sprintf("[%s::b]gc[%s::b]search[-:-:-]\n[%s::d]chat search[-:-:-]", title, fg, fg)
	if l.platform != "" {
		s += fmt.Sprintf("\n[%s::]%s[-:-:-]", Hex(l.theme.CounterColor), tview.Escape(l.platform))
	}
	return s
}
