package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PasswordPromptModel collects a secret for one hop of the tunnel.
// The value lives in memory only.
type PasswordPromptModel struct {
	input   textinput.Model
	title   string
	label   string
	errText string
	width   int
	height  int
}

// PasswordSubmittedMsg is sent when the prompt is confirmed or abandoned
type PasswordSubmittedMsg struct {
	Password  string
	Cancelled bool
}

// NewPasswordPromptModel creates a prompt for the named endpoint
func NewPasswordPromptModel(title, label string) *PasswordPromptModel {
	input := textinput.New()
	input.Placeholder = "Enter password"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.CharLimit = 256
	input.Width = 50
	input.Prompt = "> "
	input.Focus()

	return &PasswordPromptModel{
		input: input,
		title: title,
		label: label,
	}
}

func (m *PasswordPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *PasswordPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			password := m.input.Value()
			m.input.SetValue("")
			return m, func() tea.Msg {
				return PasswordSubmittedMsg{Password: password}
			}

		case "esc":
			return m, func() tea.Msg {
				return PasswordSubmittedMsg{Cancelled: true}
			}
		}
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PasswordPromptModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.label != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Password for %s", m.label)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("enter: submit • esc: cancel"))

	return boxStyle.Render(b.String())
}

// SetError shows a failure note above the help line, typically after the
// server rejected the previous attempt
func (m *PasswordPromptModel) SetError(err error) {
	if err != nil {
		m.errText = fmt.Sprintf("✗ %v", err)
	}
}
