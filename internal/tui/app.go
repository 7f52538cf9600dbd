package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calculab/calcu/internal/calc"
	"github.com/calculab/calcu/internal/download"
	"github.com/calculab/calcu/internal/history"
	"github.com/calculab/calcu/pkg/auth"
	"github.com/calculab/calcu/pkg/client"
	"github.com/calculab/calcu/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewCalc
	viewDatasheet
)

// sessionChangedMsg carries a session transition from the auth manager
// into the bubbletea loop.
type sessionChangedMsg struct {
	session *domain.Session
}

// Deps are the external collaborators the TUI drives.
type Deps struct {
	Sessions    *auth.Manager
	Backend     *client.Client
	Store       history.Store
	Logger      *slog.Logger
	DownloadDir string
	Version     string
}

// App is the root bubbletea model. It consumes session-change events and
// owns the lifecycle of the session-scoped pieces: the history cache and
// the calc view are rebuilt on sign-in and discarded on sign-out.
type App struct {
	deps      Deps
	sessionCh chan *domain.Session
	unsub     func()

	view      view
	login     loginModel
	calcView  calcModel
	datasheet datasheetModel
	session   *domain.Session
	width     int
	height    int
}

// NewApp wires the TUI to its collaborators. The returned app is already
// subscribed to session changes; Close releases the subscription.
func NewApp(deps Deps) App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ch := make(chan *domain.Session, 8)
	unsub := deps.Sessions.Subscribe(func(s *domain.Session) {
		ch <- s
	})

	dl := download.New(deps.Backend, download.DirSaver{Dir: deps.DownloadDir})
	a := App{
		deps:      deps,
		sessionCh: ch,
		unsub:     unsub,
		login:     newLoginModel(deps.Sessions),
		datasheet: newDatasheetModel(dl),
	}
	if s := deps.Sessions.Current(); s != nil {
		a = a.activateSession(s)
	}
	return a
}

// Close releases the session subscription. Safe to call more than once.
func (a App) Close() {
	if a.unsub != nil {
		a.unsub()
	}
}

// activateSession builds the session-scoped state: a fresh history cache
// and a calc view bound to it.
func (a App) activateSession(s *domain.Session) App {
	cache := history.NewCache(a.deps.Store, a.deps.Logger)
	orch := calc.New(a.deps.Backend, cache)
	a.session = s
	a.calcView = newCalcModel(orch, cache, s)
	a.calcView.width, a.calcView.height = a.width, a.height
	a.view = viewCalc
	return a
}

// deactivateSession discards the session-scoped state entirely; the old
// cache is unreachable after this, not merely hidden.
func (a App) deactivateSession() App {
	a.session = nil
	a.calcView = calcModel{}
	a.login = newLoginModel(a.deps.Sessions)
	a.view = viewLogin
	return a
}

// waitForSession blocks on the next session transition.
func (a App) waitForSession() tea.Cmd {
	ch := a.sessionCh
	return func() tea.Msg {
		return sessionChangedMsg{session: <-ch}
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.waitForSession()}
	if a.session != nil {
		cmds = append(cmds, a.calcView.loadHistory())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + help(1) = 4 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a.login, _ = a.login.Update(bodyMsg)
		a.calcView, _ = a.calcView.Update(bodyMsg)
		a.datasheet, _ = a.datasheet.Update(bodyMsg)
		return a, nil

	case sessionChangedMsg:
		var cmd tea.Cmd
		if msg.session != nil {
			a = a.activateSession(msg.session)
			cmd = a.calcView.loadHistory()
		} else {
			a = a.deactivateSession()
		}
		return a, tea.Batch(cmd, a.waitForSession())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.Close()
			return a, tea.Quit
		case "tab":
			if a.session != nil {
				if a.view == viewCalc {
					a.view = viewDatasheet
				} else {
					a.view = viewCalc
				}
				return a, nil
			}
		case "ctrl+o":
			if a.session != nil {
				return a, a.login.signOutCmd()
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewCalc:
		a.calcView, cmd = a.calcView.Update(msg)
	case viewDatasheet:
		a.datasheet, cmd = a.datasheet.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	logo := logoStyle.Render("C A L C U")
	sub := metaStyle.Render("workbench client")
	if a.session != nil {
		sub = metaStyle.Render(a.session.Email)
	}
	header := center(logo, a.width) + "\n" + center(sub, a.width)

	var tabBar string
	if a.session != nil {
		type tabEntry struct {
			name string
			v    view
		}
		tabs := []tabEntry{
			{"Calc", viewCalc},
			{"Datasheet", viewDatasheet},
		}
		parts := make([]string, 0, len(tabs))
		for _, t := range tabs {
			if t.v == a.view {
				parts = append(parts, selectedStyle.Underline(true).Render(t.name))
			} else {
				parts = append(parts, dimStyle.Render(t.name))
			}
		}
		tabBar = center(strings.Join(parts, metaStyle.Render("   ")), a.width)
	}

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = " " + helpEntry("tab", "field") + "  " + helpEntry("enter", "sign in") + "  " + helpEntry("ctrl+n", "sign up") + "  " + helpEntry("ctrl+c", "quit")
	case viewCalc:
		body = a.calcView.View()
		help = " " + helpEntry("enter", "calculate") + "  " + helpEntry("c", "copy result") + "  " + helpEntry("tab", "datasheet") + "  " + helpEntry("ctrl+o", "sign out") + "  " + helpEntry("ctrl+c", "quit")
	case viewDatasheet:
		body = a.datasheet.View()
		help = " " + helpEntry("enter", "download") + "  " + helpEntry("↑/↓", "examples") + "  " + helpEntry("o", "open") + "  " + helpEntry("tab", "calc") + "  " + helpEntry("ctrl+c", "quit")
	}

	// Chrome budget: header(2) + tabs(1) + help(1) = 4 lines + body
	body = strings.TrimRight(truncateToHeight(body, a.height-4), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabBar, body, help)
}

// center pads s to the middle of a width-column line.
func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
