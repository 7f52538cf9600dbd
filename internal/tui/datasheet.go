package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calculab/calcu/internal/download"
	"github.com/calculab/calcu/internal/opener"
	"github.com/calculab/calcu/pkg/client"
)

// exampleMPN is a well-known part number offered as a one-keystroke fill.
type exampleMPN struct {
	name string
	desc string
}

var exampleMPNs = []exampleMPN{
	{"IFR530", "VISHAY MOSFET"},
	{"BD42754FPJ-CE2", "ROHM LDO"},
	{"TLV733P-Q1", "TI LDO"},
}

type downloadDoneMsg struct {
	path string
	err  error
}

type datasheetModel struct {
	downloader *download.Downloader

	mpn       string
	cursor    int
	savedPath string
	busy      bool
	errMsg    string
	width     int
	height    int
}

func newDatasheetModel(d *download.Downloader) datasheetModel {
	return datasheetModel{downloader: d}
}

func (m datasheetModel) Update(msg tea.Msg) (datasheetModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case downloadDoneMsg:
		m.busy = false
		if msg.err != nil {
			// Prefer the server's own explanation when it sent one.
			if detail := client.Detail(msg.err); detail != "" {
				m.errMsg = detail
			} else if errors.Is(msg.err, download.ErrInvalidInput) {
				m.errMsg = "Please enter a valid MPN"
			} else {
				m.errMsg = "Failed to download datasheet"
			}
			return m, nil
		}
		m.savedPath = msg.path
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		m.errMsg = ""
		switch msg.String() {
		case "enter":
			return m.submit()
		case "up", "ctrl+p":
			m.cursor = (m.cursor - 1 + len(exampleMPNs)) % len(exampleMPNs)
			m.mpn = exampleMPNs[m.cursor].name
		case "down", "ctrl+n":
			m.cursor = (m.cursor + 1) % len(exampleMPNs)
			m.mpn = exampleMPNs[m.cursor].name
		case "o":
			if m.mpn == "" && m.savedPath != "" {
				_ = opener.Open(m.savedPath)
				return m, nil
			}
			m.mpn = editRune(m.mpn, msg.String())
		default:
			m.mpn = editRune(m.mpn, msg.String())
		}
	}
	return m, nil
}

func (m datasheetModel) submit() (datasheetModel, tea.Cmd) {
	if strings.TrimSpace(m.mpn) == "" {
		// Rejected locally; no request goes out.
		m.errMsg = "Please enter a valid MPN"
		return m, nil
	}

	m.busy = true
	m.savedPath = ""
	d, mpn := m.downloader, m.mpn
	return m, func() tea.Msg {
		path, err := d.Download(context.Background(), mpn)
		return downloadDoneMsg{path: path, err: err}
	}
}

func (m datasheetModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Download Component Datasheet") + "\n\n")

	b.WriteString("  " + inputPromptStyle.Render("MPN "))
	if m.mpn == "" && !m.busy {
		b.WriteString(inputPlaceholderStyle.Render("Enter Manufacturer Part Number"))
	} else {
		b.WriteString(normalStyle.Render(m.mpn))
	}
	if !m.busy {
		b.WriteString(accentStyle.Render("█"))
	}
	b.WriteString("\n\n")

	b.WriteString("  " + metaStyle.Render("Examples") + "\n")
	for i, ex := range exampleMPNs {
		line := "   " + normalStyle.Render(ex.name) + "  " + metaStyle.Render(ex.desc)
		if i == m.cursor && m.mpn == ex.name {
			line = selectedRowBg.Render(" > " + selectedStyle.Render(ex.name) + "  " + dimStyle.Render(ex.desc))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Downloading...") + "\n")
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
	case m.savedPath != "":
		b.WriteString("  " + okStyle.Render("saved "+m.savedPath) + "\n")
	}
	return b.String()
}
