// Package tui implements the interactive terminal frontend: destination
// setup, connection progress, upload progress, and the summary screen.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the UI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginLeft(2)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			MarginLeft(2)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true).
			MarginLeft(2)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)
)

// MenuChoice represents a menu selection
type MenuChoice int

const (
	MenuNone MenuChoice = iota
	MenuUpload
	MenuProfiles
	MenuSettings
	MenuBackup
	MenuQuit
)

// MenuModel is the top-level menu
type MenuModel struct {
	choices  []string
	cursor   int
	selected MenuChoice
	width    int
	height   int
}

// NewMenuModel creates the initial menu
func NewMenuModel() MenuModel {
	return MenuModel{
		choices: []string{
			"Upload Directory",
			"Saved Destinations",
			"Settings",
			"Backup & Restore",
			"Quit",
		},
		cursor:   0,
		selected: MenuNone,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			m.selected = MenuQuit
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case "enter", " ":
			m.selected = MenuChoice(m.cursor + 1)
			if m.selected == MenuQuit {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.selected == MenuQuit {
		return ""
	}

	s := titleStyle.Render("📤 HopSync — tunneled directory upload") + "\n\n"

	for i, choice := range m.choices {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
			choice = selectedItemStyle.Render(choice)
		} else {
			choice = itemStyle.Render(choice)
		}
		s += fmt.Sprintf("%s %s\n", cursor, choice)
	}

	s += "\n" + helpStyle.Render("↑/k up • ↓/j down • enter select • q quit")

	return boxStyle.Render(s)
}
