package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calculab/calcu/internal/calc"
	"github.com/calculab/calcu/internal/history"
	"github.com/calculab/calcu/pkg/domain"
)

// historyShown is how many recent records the panel displays; the cache
// itself is not bounded.
const historyShown = 5

type historyLoadedMsg struct {
	records []domain.UsageRecord
}

type calcDoneMsg struct {
	result  float64
	records []domain.UsageRecord
	err     error
}

type resultCopiedMsg struct {
	err error
}

type calcModel struct {
	orch    *calc.Orchestrator
	cache   *history.Cache
	session *domain.Session

	input   string
	result  *float64
	records []domain.UsageRecord

	busy      bool
	errMsg    string
	statusMsg string
	width     int
	height    int
}

func newCalcModel(orch *calc.Orchestrator, cache *history.Cache, session *domain.Session) calcModel {
	return calcModel{orch: orch, cache: cache, session: session}
}

// loadHistory fetches the usage log for the active session. Failures
// degrade to an empty panel inside the cache; no error surfaces here.
func (m calcModel) loadHistory() tea.Cmd {
	cache, sess := m.cache, m.session
	if cache == nil || sess == nil {
		return nil
	}
	return func() tea.Msg {
		records := cache.Load(context.Background(), sess.AccessToken, sess.UserID)
		return historyLoadedMsg{records: records}
	}
}

func (m calcModel) Update(msg tea.Msg) (calcModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case historyLoadedMsg:
		m.records = msg.records
		return m, nil

	case calcDoneMsg:
		m.busy = false
		switch {
		case msg.err == nil:
			r := msg.result
			m.result = &r
			m.records = msg.records
			m.input = ""
		case errors.Is(msg.err, calc.ErrPersistence):
			// The computation succeeded; only the write failed.
			r := msg.result
			m.result = &r
			m.records = msg.records
			m.input = ""
			m.errMsg = "result not saved to history"
		default:
			m.errMsg = "Failed to calculate."
		}
		return m, nil

	case resultCopiedMsg:
		if msg.err != nil {
			m.errMsg = "copy failed"
		} else {
			m.statusMsg = "result copied"
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		m.errMsg = ""
		m.statusMsg = ""
		switch msg.String() {
		case "enter":
			return m.submit()
		case "c":
			if m.input == "" && m.result != nil {
				result := *m.result
				return m, func() tea.Msg {
					return resultCopiedMsg{err: clipboard.WriteAll(formatNumber(result))}
				}
			}
			m.input = editRune(m.input, msg.String())
		case "r":
			if m.input == "" {
				return m, m.loadHistory()
			}
			m.input = editRune(m.input, msg.String())
		default:
			m.input = editRune(m.input, msg.String())
		}
	}
	return m, nil
}

func (m calcModel) submit() (calcModel, tea.Cmd) {
	raw := strings.TrimSpace(m.input)
	if raw == "" {
		m.errMsg = "enter a number"
		return m, nil
	}

	m.busy = true
	orch, cache, sess := m.orch, m.cache, m.session
	return m, func() tea.Msg {
		result, err := orch.Calculate(context.Background(), raw, sess)
		var records []domain.UsageRecord
		if cache != nil {
			records = cache.Records()
		}
		return calcDoneMsg{result: result, records: records, err: err}
	}
}

func (m calcModel) View() string {
	var b strings.Builder

	b.WriteString("\n  " + inputPromptStyle.Render("> "))
	if m.input == "" && !m.busy {
		b.WriteString(inputPlaceholderStyle.Render("Enter a number"))
	} else {
		b.WriteString(normalStyle.Render(m.input))
	}
	if !m.busy {
		b.WriteString(accentStyle.Render("█"))
	}
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Calculating...") + "\n")
	case m.errMsg != "" && m.result == nil:
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
	case m.result != nil:
		b.WriteString("  Result: " + resultStyle.Render(formatNumber(*m.result)) + "\n")
		if m.errMsg != "" {
			b.WriteString("  " + warnStyle.Render(m.errMsg) + "\n")
		} else if m.statusMsg != "" {
			b.WriteString("  " + okStyle.Render(m.statusMsg) + "\n")
		}
	}

	if len(m.records) > 0 {
		b.WriteString("\n  " + dimStyle.Render("Your History") + "\n")
		shown := m.records
		if len(shown) > historyShown {
			shown = shown[:historyShown]
		}
		for _, rec := range shown {
			line := fmt.Sprintf("  %s → %s",
				normalStyle.Render(formatNumber(rec.Input)),
				selectedStyle.Render(formatNumber(rec.Result)))
			when := metaStyle.Render(rec.CreatedAt.Local().Format("Jan 2 15:04"))
			b.WriteString(line + "  " + when + "\n")
		}
	}
	return b.String()
}

// formatNumber renders a float without trailing decimal noise.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
