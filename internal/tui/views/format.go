package views

import (
	"strings"
	"time"

	"github.com/matheus3301/gcsearch/internal/backend"
)

// now is replaced in tests.
var now = time.Now

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	n := now()
	switch {
	case t.Year() == n.Year() && t.YearDay() == n.YearDay():
		return t.Format("15:04")
	case t.Year() == n.Year():
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// conversationTitle prefers the display name over the internal name.
func conversationTitle(c backend.Conversation) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.InternalName
}

// oneLine collapses message text for table cells.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clean(s string) string {
	return oneLine(terminalText(s))
}
