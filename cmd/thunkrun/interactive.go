package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/thunk-runtime/engine"
	"github.com/wippyai/thunk-runtime/inspect"
	"github.com/wippyai/thunk-runtime/runtime"
	"github.com/wippyai/thunk-runtime/thunk"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	chainStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	lib      library
	session  *session
	title    string
	result   string
	funcs    []funcInfo
	input    textinput.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateApplyArgs
	stateShowResult
)

type invokeResultMsg struct {
	err    error
	result thunk.Value
}

func newInteractiveModel(rt *runtime.Runtime, lib library, title string) *interactiveModel {
	ti := textinput.New()
	ti.Width = 40
	return &interactiveModel{
		rt:    rt,
		lib:   lib,
		title: title,
		funcs: lib.Functions(),
		input: ti,
		state: stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.closeSession()
			return m, tea.Quit

		case "q":
			if m.state != stateApplyArgs {
				m.closeSession()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				return m, m.startSession()
			case stateApplyArgs:
				return m, m.applyInput()
			case stateShowResult:
				m.result = ""
				m.err = nil
				if m.session.back() {
					m.state = stateApplyArgs
				} else {
					m.closeSession()
					m.state = stateSelectFunc
				}
				m.prepareInput()
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateApplyArgs:
				m.err = nil
				if !m.session.back() {
					m.closeSession()
					m.state = stateSelectFunc
				}
				m.prepareInput()
			case stateShowResult:
				m.closeSession()
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
			return m, nil
		}

	case invokeResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.result = inspect.Tree(msg.result, true)
		}
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateApplyArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) startSession() tea.Cmd {
	if len(m.funcs) == 0 {
		return nil
	}
	f := m.funcs[m.selected]
	if !f.curryable {
		m.err = fmt.Errorf("%s cannot be curried", f.name)
		return nil
	}
	s, err := newSession(m.rt, m.lib, f)
	if err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.session = s
	if s.saturated() {
		return m.invoke
	}
	m.state = stateApplyArgs
	m.prepareInput()
	return textinput.Blink
}

func (m *interactiveModel) applyInput() tea.Cmd {
	if _, err := m.session.apply(m.input.Value()); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	if m.session.saturated() {
		return m.invoke
	}
	m.prepareInput()
	return nil
}

func (m *interactiveModel) invoke() tea.Msg {
	v, err := m.session.invoke(context.Background())
	return invokeResultMsg{result: v, err: err}
}

func (m *interactiveModel) prepareInput() {
	m.input.Reset()
	if m.session == nil {
		m.input.Blur()
		return
	}
	rank := m.session.rank()
	m.input.Prompt = fmt.Sprintf("arg%d: ", rank)
	m.input.Placeholder = engine.TypeName(m.session.fn.paramType(rank))
	m.input.Focus()
}

func (m *interactiveModel) closeSession() {
	if m.session != nil {
		m.session.close()
		m.session = nil
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Thunk Runner"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.rt.Mode().String()))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function:\n\n")
		for i, f := range m.funcs {
			line := m.formatFunc(f)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter apply • q quit"))

	case stateApplyArgs:
		b.WriteString(fmt.Sprintf("Applying %s\n\n", funcStyle.Render(m.session.fn.name)))
		b.WriteString(chainStyle.Render(m.chainView()))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc back to predecessor • ctrl+c quit"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.session.fn.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter step back • esc functions • q quit"))
	}

	return b.String()
}

// chainView lists every thunk from the root to the current one.
func (m *interactiveModel) chainView() string {
	lines := make([]string, 0, len(m.session.chain))
	for i, ref := range m.session.chain {
		v, err := m.rt.Resolve(ref)
		if err != nil {
			lines = append(lines, errorStyle.Render(err.Error()))
			continue
		}
		fn, ok := v.(*thunk.Func)
		if !ok {
			lines = append(lines, thunk.Describe(v))
			continue
		}
		line := fmt.Sprintf("%d: %s", i, fn)
		if i == len(m.session.chain)-1 {
			line = funcStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = fmt.Sprintf("arg%d: %s", i, typeStyle.Render(engine.TypeName(p)))
	}
	result := ""
	if f.result != nil {
		result = " -> " + typeStyle.Render(engine.TypeName(f.result))
	}
	line := funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
	if !f.curryable {
		line += helpStyle.Render(" (not curryable)")
	}
	return line
}

func runInteractive(rt *runtime.Runtime, lib library, title string) error {
	if title == "" {
		title = "built-in"
	}
	p := tea.NewProgram(newInteractiveModel(rt, lib, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
