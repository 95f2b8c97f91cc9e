package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/status"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the profile, platform, backend liveness and the last
// failure message.
type StatusBar struct {
	*tview.TextView
	theme    *ui.Theme
	profile  string
	platform backend.Platform
	backend  status.State
	message  string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, backend: status.Unknown}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// Update refreshes the platform, liveness and status message.
func (sb *StatusBar) Update(p backend.Platform, s status.State, message string) {
	sb.platform, sb.backend, sb.message = p, s, message
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	parts := []string{fmt.Sprintf(" [::b]%s[-:-:-]", tview.Escape(sb.profile))}
	if sb.platform != "" {
		parts = append(parts, string(sb.platform))
	}
	parts = append(parts, fmt.Sprintf("[%s]%s[-]", sb.stateColor(), sb.backend))
	if sb.message != "" {
		parts = append(parts, fmt.Sprintf("[%s]%s[-]", ui.Hex(sb.theme.FlashErrColor), tview.Escape(sb.message)))
	}
	parts = append(parts, now().Format("15:04"))

	_, _ = fmt.Fprint(sb, strings.Join(parts, " | "))
}

func (sb *StatusBar) stateColor() string {
	switch sb.backend {
	case status.Online:
		return ui.Hex(sb.theme.OnlineColor)
	case status.Offline:
		return ui.Hex(sb.theme.OfflineColor)
	case status.Probing:
		return ui.Hex(sb.theme.ProbingColor)
	default:
		return ui.Hex(sb.theme.BoundaryColor)
	}
}
