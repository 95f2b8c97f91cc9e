package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData holds what the header shows about the running client.
type ProfileData struct {
	Profile       string
	BackendURL    string
	Backend       string
	Platform      string
	Identity      string
	Conversations int
	Results       int
}

// ProfileInfo displays profile and backend metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new profile info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the profile info.
func (pi *ProfileInfo) Update(data *ProfileData) {
	pi.Clear()
	if data == nil {
		return
	}

	fg := Hex(pi.theme.FgColor)
	ct := Hex(pi.theme.CounterColor)

	identity := data.Identity
	if identity == "" {
		identity = "-"
	}

	_, _ = fmt.Fprintf(pi,
		"[%s::b]Profile:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Backend:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Platform:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]You:[-:-:-]      [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]    [%s]%d[-]  [%s::b]Hits:[-:-:-] [%s]%d[-]",
		fg, ct, tview.Escape(data.Profile),
		fg, ct, tview.Escape(data.BackendURL),
		fg, ct, data.Backend,
		fg, ct, data.Platform,
		fg, ct, tview.Escape(identity),
		fg, ct, data.Conversations, fg, ct, data.Results,
	)
}
