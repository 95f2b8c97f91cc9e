package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// maxCrumbs bounds how many trail labels are drawn; older ones collapse
// into an ellipsis.
const maxCrumbs = 4

// Crumbs draws the page trail under the main view.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update redraws the trail. The last label is the active page.
func (c *Crumbs) Update(labels []string) {
	c.SetText(c.trail(labels))
}

func (c *Crumbs) trail(labels []string) string {
	var b strings.Builder
	if len(labels) > maxCrumbs {
		fmt.Fprintf(&b, "[%s:%s:] … [-:-:-] > ", Hex(c.theme.CrumbInactiveFg), Hex(c.theme.CrumbInactiveBg))
		labels = labels[len(labels)-maxCrumbs:]
	}
	last := len(labels) - 1
	for i, label := range labels {
		if i > 0 {
			b.WriteString(" > ")
		}
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == last {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		fmt.Fprintf(&b, "[%s:%s:%s] %s [-:-:-]", Hex(fg), Hex(bg), attr, tview.Escape(label))
	}
	return b.String()
}
