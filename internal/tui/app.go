// Package tui is the interactive terminal front end. It renders the
// coordinator's state and turns key presses and commands into coordinator
// operations; it holds no state of its own beyond layout.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/gcsearch/internal/backend"
	"github.com/matheus3301/gcsearch/internal/bus"
	"github.com/matheus3301/gcsearch/internal/coordinator"
	"github.com/matheus3301/gcsearch/internal/tui/keys"
	"github.com/matheus3301/gcsearch/internal/tui/ui"
	"github.com/matheus3301/gcsearch/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	pageConversations = "conversations"
	pageSearch        = "search"
	pageThread        = "thread"
	pageDetails       = "details"
	pageHelp          = "help"
)

// Options configures the application shell.
type Options struct {
	Profile    string
	BackendURL string
	Platform   backend.Platform
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	coord    *coordinator.Coordinator
	bus      *bus.Bus
	logger   *zap.Logger
	opts     Options
	theme    *ui.Theme
	registry *keys.Registry
	flash    *ui.FlashModel

	body        *tview.Flex
	pages       *ui.Pages
	profileInfo *ui.ProfileInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	logo        *ui.Logo
	prompt      *ui.Prompt
	flashBar    *ui.FlashBar
	statusBar   *views.StatusBar

	convList *views.ConversationList
	searchV  *views.SearchView
	thread   *views.MessageThread
	details  *views.ConversationInfo
	help     *views.HelpView

	components map[string]ui.Component
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(coord *coordinator.Coordinator, b *bus.Bus, opts Options, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Platform == "" {
		opts.Platform = backend.WhatsApp
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		coord:       coord,
		bus:         b,
		logger:      logger,
		opts:        opts,
		theme:       theme,
		registry:    keys.NewRegistry(),
		flash:       ui.NewFlashModel(),
		pages:       ui.NewPages(),
		profileInfo: ui.NewProfileInfo(theme),
		menu:        ui.NewMenu(theme),
		crumbs:      ui.NewCrumbs(theme),
		logo:        ui.NewLogo(theme),
		prompt:      ui.NewPrompt(theme),
		flashBar:    ui.NewFlashBar(theme),
		statusBar:   views.NewStatusBar(theme),
		convList:    views.NewConversationList(theme),
		searchV:     views.NewSearchView(theme),
		thread:      views.NewMessageThread(theme),
		details:     views.NewConversationInfo(theme),
		help:        views.NewHelpView(theme),
		ctx:         ctx,
		cancel:      cancel,
	}
	a.components = map[string]ui.Component{
		pageConversations: a.convList,
		pageSearch:        a.searchV,
		pageThread:        a.thread,
		pageDetails:       a.details,
		pageHelp:          a.help,
	}

	a.statusBar.SetProfile(opts.Profile)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 's', Description: "Search", Visible: true,
		Handler: a.showSearch,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'p', Description: "Platform", Visible: true,
		Handler: a.nextPlatform,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Reload", Visible: true,
		Handler: func() { a.selectPlatform(a.coord.Snapshot().Platform) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.back()
				return
			}
			a.Stop()
		},
	})

	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Filter",
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: '0', Description: "Clear filter", Visible: true,
		Handler: a.convList.ClearFilter,
	})
	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details", Visible: true,
		Handler: a.showDetails,
	})

	a.registry.AddView(pageSearch, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Query",
		Handler: func() { a.app.SetFocus(a.searchV.Input()) },
	})
	a.registry.AddView(pageSearch, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c', Description: "Clear", Visible: true,
		Handler: func() {
			a.coord.ClearSearch()
			a.searchV.Input().SetText("")
		},
	})

	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: '[', Description: "Earlier", Visible: true,
		Handler: func() { a.navigate(a.coord.Earlier) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: ']', Description: "Later", Visible: true,
		Handler: func() { a.navigate(a.coord.Later) },
	})

	a.registry.AddView(pageDetails, &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter", Description: "Open",
		Handler: func() { a.openConversation(a.details.InternalName()) },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, _ int) {
		if c, ok := a.convList.ConversationAt(row); ok {
			a.openConversation(c.InternalName)
		}
	})

	a.searchV.SetOnQuery(func(query string) {
		a.app.SetFocus(a.searchV.Results())
		a.search(query)
	})
	a.searchV.SetOnCancel(func() {
		a.app.SetFocus(a.searchV.Results())
	})
	a.searchV.Results().SetSelectedFunc(func(row, _ int) {
		i := row - 1
		a.push(pageThread)
		a.run("open result", func(ctx context.Context) error {
			return a.coord.SelectResult(ctx, i)
		})
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptFilter {
			a.convList.SetFilter(text)
			return
		}
		a.execute(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func([]string) { a.updateChrome() })
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageConversations, a.convList, true, false)
	a.pages.AddPage(pageSearch, a.searchV, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	header := tview.NewFlex().
		AddItem(a.profileInfo, 50, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 14, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.Reset(pageConversations)
	a.app.SetRoot(a.body, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Text input widgets handle their own keys, including Esc.
		if a.prompt.HasFocus() || a.searchV.Input().HasFocus() {
			return event
		}

		if event.Key() == tcell.KeyEscape {
			if a.pages.Depth() > 1 {
				a.back()
				return nil
			}
			if a.convList.Filter() != "" {
				a.convList.ClearFilter()
				return nil
			}
		}

		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	states, unsubState := a.bus.Subscribe("state.", 64)
	liveness, unsubBackend := a.bus.Subscribe("backend.", 16)
	defer unsubState()
	defer unsubBackend()
	go a.watch(states, liveness)

	a.run("start", func(ctx context.Context) error {
		if err := a.coord.Start(ctx); err != nil {
			a.logger.Warn("starting offline", zap.Error(err))
		}
		return a.coord.SelectPlatform(ctx, a.opts.Platform)
	})

	a.refresh()
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// watch redraws on every state change, and once a second for the clock and
// flash expiry.
func (a *App) watch(states, liveness <-chan bus.Event) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-states:
		case <-liveness:
		case <-ticker.C:
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(a.refresh)
	}
}

// refresh redraws every view from a single coordinator snapshot. It must run
// on the draw goroutine.
func (a *App) refresh() {
	v := a.coord.Render()

	a.convList.Update(v.Platform, v.Conversations, v.DirectoryLoading)
	a.searchV.Update(v.SearchQuery, v.SearchMode, v.Results, v.Searching)
	a.thread.Update(v.Window, v.Messages)
	a.statusBar.Update(v.Platform, v.Backend, v.Status)
	a.logo.SetPlatform(string(v.Platform))

	identity := ""
	if v.CurrentUser.Identity != nil {
		identity = *v.CurrentUser.Identity
	}
	a.profileInfo.Update(&ui.ProfileData{
		Profile:       a.opts.Profile,
		BackendURL:    a.opts.BackendURL,
		Backend:       string(v.Backend),
		Platform:      string(v.Platform),
		Identity:      identity,
		Conversations: len(v.Conversations),
		Results:       len(v.Results),
	})
	a.flashBar.Update(a.flash.GetMessage())
	a.updateChrome()
}

func (a *App) updateChrome() {
	current := a.pages.Current()
	var hints []ui.MenuHint
	if c, ok := a.components[current]; ok {
		hints = append(hints, c.Hints()...)
	}
	a.menu.Update(append(hints, a.registry.Hints(current)...))

	var labels []string
	for _, name := range a.pages.Stack() {
		if c, ok := a.components[name]; ok {
			labels = append(labels, c.Name())
		}
	}
	a.crumbs.Update(labels)
}

func (a *App) push(page string) {
	a.pages.Push(page)
	a.focusPage(page)
}

func (a *App) back() {
	if a.pages.Pop() == pageThread {
		a.coord.CloseConversation()
	}
	a.focusPage(a.pages.Current())
}

func (a *App) focusPage(page string) {
	switch page {
	case pageSearch:
		if len(a.coord.Snapshot().Results) == 0 {
			a.app.SetFocus(a.searchV.Input())
		} else {
			a.app.SetFocus(a.searchV.Results())
		}
	case pageThread:
		a.app.SetFocus(a.thread)
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	default:
		a.app.SetFocus(a.convList)
	}
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.convList.Filter())
	}
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.focusPage(a.pages.Current())
}

func (a *App) showSearch() {
	a.pages.Push(pageSearch)
	a.app.SetFocus(a.searchV.Input())
}

func (a *App) showDetails() {
	c, ok := a.convList.SelectedConversation()
	if !ok {
		return
	}
	a.details.Update(a.coord.Snapshot().Platform, c)
	a.push(pageDetails)
}

func (a *App) nextPlatform() {
	current := a.coord.Snapshot().Platform
	i := slices.Index(backend.Platforms, current)
	a.selectPlatform(backend.Platforms[(i+1)%len(backend.Platforms)])
}

func (a *App) selectPlatform(p backend.Platform) {
	a.pages.Reset(pageConversations)
	a.coord.CloseConversation()
	a.focusPage(pageConversations)
	a.run("select platform", func(ctx context.Context) error {
		return a.coord.SelectPlatform(ctx, p)
	})
}

func (a *App) search(query string) {
	a.run("search", func(ctx context.Context) error {
		return a.coord.Search(ctx, query, 0)
	})
}

func (a *App) openConversation(internalName string) {
	if internalName == "" {
		return
	}
	a.push(pageThread)
	a.run("open conversation", func(ctx context.Context) error {
		return a.coord.SelectConversation(ctx, internalName)
	})
}

func (a *App) navigate(step func(context.Context) error) {
	if !a.coord.CanNavigate() {
		a.flash.Warn("No conversation open")
		return
	}
	a.run("navigate", step)
}

// execute runs a ':' command.
func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case "platform", "pf":
		p, err := backend.ParsePlatform(cmd.Args)
		if err != nil {
			a.flash.Warn(fmt.Sprintf("Unknown platform %q", cmd.Args))
			return
		}
		a.selectPlatform(p)
	case "search", "s":
		a.showSearch()
		a.searchV.Input().SetText(cmd.Args)
		a.app.SetFocus(a.searchV.Results())
		a.search(cmd.Args)
	case "near":
		rng, query, err := parseNear(cmd.Args)
		if err != nil {
			a.flash.Warn(err.Error())
			return
		}
		a.pages.Push(pageSearch)
		a.app.SetFocus(a.searchV.Results())
		a.run("proximity search", func(ctx context.Context) error {
			return a.coord.ProximitySearch(ctx, query, rng)
		})
	case "open", "o":
		a.openConversation(cmd.Args)
	case "clear":
		a.coord.ClearSearch()
		a.searchV.Input().SetText("")
	case "reload", "r":
		a.selectPlatform(a.coord.Snapshot().Platform)
	case "help", "h":
		a.push(pageHelp)
	case "quit", "q":
		a.Stop()
	default:
		a.flash.Warn(fmt.Sprintf("Unknown command: %s", cmd.Name))
	}
	a.flashBar.Update(a.flash.GetMessage())
}

// run executes a coordinator operation off the draw goroutine. Failures the
// coordinator reports through the status line are only logged; the rest are
// flashed.
func (a *App) run(name string, fn func(context.Context) error) {
	go func() {
		err := fn(a.ctx)
		switch {
		case err == nil, errors.Is(err, coordinator.ErrStale), errors.Is(err, context.Canceled):
			return
		case errors.Is(err, coordinator.ErrUnknownConversation),
			errors.Is(err, coordinator.ErrNoAnchor),
			errors.Is(err, coordinator.ErrNoResult),
			errors.Is(err, backend.ErrUnknownPlatform):
			a.flash.Warn(err.Error())
		default:
			a.logger.Debug("operation failed", zap.String("op", name), zap.Error(err))
		}
		a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.GetMessage()) })
	}()
}
