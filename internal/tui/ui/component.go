package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is the lifecycle interface for all pages.
type Component interface {
	// Name is shown in the breadcrumb bar.
	Name() string
	Hints() []MenuHint
}
