package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages keeps a navigation stack over tview.Pages. Only the top page is
// visible; the root is never popped.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange registers fn to receive the stack after every change.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push moves name to the top. Pushing the current page does nothing.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	p.stack = slices.DeleteFunc(p.stack, func(n string) bool { return n == name })
	p.stack = append(p.stack, name)
	p.sync()
}

// Pop drops the top page and returns its name, or "" at the root.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.Current()
	p.stack = p.stack[:len(p.stack)-1]
	p.sync()
	return top
}

// Reset makes name the only page on the stack.
func (p *Pages) Reset(name string) {
	p.stack = append(p.stack[:0], name)
	p.sync()
}

func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func (p *Pages) Stack() []string { return slices.Clone(p.stack) }

func (p *Pages) Depth() int { return len(p.stack) }

func (p *Pages) sync() {
	if top := p.Current(); top != "" {
		p.SwitchToPage(top)
	}
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
