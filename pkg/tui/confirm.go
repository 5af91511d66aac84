package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel is a yes/no modal
type ConfirmModel struct {
	question string
	detail   string
}

// ConfirmAnsweredMsg carries the user's decision
type ConfirmAnsweredMsg struct {
	Yes bool
}

// NewConfirmModel creates a confirmation modal
func NewConfirmModel(question, detail string) *ConfirmModel {
	return &ConfirmModel{question: question, detail: detail}
}

func (m *ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m *ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			return m, func() tea.Msg { return ConfirmAnsweredMsg{Yes: true} }
		case "n", "N", "esc":
			return m, func() tea.Msg { return ConfirmAnsweredMsg{Yes: false} }
		}
	}
	return m, nil
}

func (m *ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.question))
	b.WriteString("\n")

	if m.detail != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.detail))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("y: yes • n: no"))

	return boxStyle.Render(b.String())
}
