package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moyanj/gotpl"
	"github.com/moyanj/gotpl/engine"
	gotplerrors "github.com/moyanj/gotpl/errors"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	flagOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	flagOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type playgroundModel struct {
	eng         *engine.Engine
	template    textarea.Model
	data        textarea.Model
	result      string
	renderErr   error
	rendered    bool
	focusData   bool
	escapeHTML  bool
	missingZero bool
}

func newPlayground(eng *engine.Engine) playgroundModel {
	template := textarea.New()
	template.Placeholder = "Hello, {{.name}}!"
	template.SetHeight(5)
	template.Focus()

	data := textarea.New()
	data.Placeholder = `{"name": "MoYan"}`
	data.SetHeight(5)

	return playgroundModel{
		eng:        eng,
		template:   template,
		data:       data,
		escapeHTML: true,
	}
}

func runInteractive(eng *engine.Engine) error {
	p := tea.NewProgram(newPlayground(eng))
	_, err := p.Run()
	return err
}

func (m playgroundModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m playgroundModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 0 {
			m.template.SetWidth(width)
			m.data.SetWidth(width)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.focusData = !m.focusData
			if m.focusData {
				m.template.Blur()
				return m, m.data.Focus()
			}
			m.data.Blur()
			return m, m.template.Focus()

		case "ctrl+e":
			m.escapeHTML = !m.escapeHTML
			return m, nil

		case "ctrl+k":
			m.missingZero = !m.missingZero
			return m, nil

		case "ctrl+r":
			m.render()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focusData {
		m.data, cmd = m.data.Update(msg)
	} else {
		m.template, cmd = m.template.Update(msg)
	}
	return m, cmd
}

func (m *playgroundModel) render() {
	dataText := strings.TrimSpace(m.data.Value())
	if dataText == "" {
		dataText = "{}"
	}
	if !json.Valid([]byte(dataText)) {
		m.rendered = true
		m.result = ""
		m.renderErr = fmt.Errorf("data is not valid JSON")
		return
	}

	policy := gotpl.ErrorOnMissing
	if m.missingZero {
		policy = gotpl.ZeroOnMissing
	}

	m.rendered = true
	m.result, m.renderErr = gotpl.New(m.eng, m.template.Value(), json.RawMessage(dataText)).
		EscapeHTML(m.escapeHTML).
		OnMissingKey(policy).
		Render(context.Background())
}

func (m playgroundModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gotpl playground"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Template"))
	b.WriteString("\n")
	b.WriteString(m.template.View())
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Data (JSON)"))
	b.WriteString("\n")
	b.WriteString(m.data.View())
	b.WriteString("\n\n")

	b.WriteString(renderFlag("escape-html", m.escapeHTML))
	b.WriteString("  ")
	b.WriteString(renderFlag("missing-key=zero", m.missingZero))
	b.WriteString("\n\n")

	if m.rendered {
		if m.renderErr != nil {
			b.WriteString(errorStyle.Render(describeInteractive(m.renderErr)))
		} else {
			b.WriteString(labelStyle.Render("Output"))
			b.WriteString("\n")
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("tab: switch field • ctrl+r: render • ctrl+e: toggle escaping • ctrl+k: toggle missing-key • esc: quit"))
	b.WriteString("\n")

	return b.String()
}

func renderFlag(name string, on bool) string {
	if on {
		return flagOnStyle.Render("[x] " + name)
	}
	return flagOffStyle.Render("[ ] " + name)
}

func describeInteractive(err error) string {
	switch {
	case gotplerrors.IsInvalidInput(err):
		return "invalid input: " + err.Error()
	case gotplerrors.IsSerialization(err):
		return "serialization failed: " + err.Error()
	case gotplerrors.IsExecution(err):
		return "engine reported: " + err.Error()
	default:
		return err.Error()
	}
}
