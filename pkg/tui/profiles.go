package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/storage"
)

// ProfileChosenMsg is sent when the user picks a saved destination to
// upload to
type ProfileChosenMsg struct {
	Profile *storage.Profile
}

const (
	profName = iota
	profJumpHost
	profJumpUser
	profTargetHost
	profTargetUser
	profRemotePath
	profDescription
	profFieldCount
)

// ProfilesModel lists saved destinations and edits them in place
type ProfilesModel struct {
	store         *storage.Store
	settingsStore *storage.SettingsStore
	profiles      []*storage.Profile
	cursor        int

	editing   bool
	editID    string // empty when adding
	inputs    []textinput.Model
	focused   int
	confirm   *ConfirmModel
	deleteID  string
	statusMsg string
	err       error
	width     int
	height    int
}

// NewProfilesModel creates the saved destinations screen
func NewProfilesModel(store *storage.Store, settingsStore *storage.SettingsStore) *ProfilesModel {
	m := &ProfilesModel{store: store, settingsStore: settingsStore}
	m.reload()
	return m
}

func (m *ProfilesModel) reload() {
	m.profiles = m.store.List()
	if m.cursor >= len(m.profiles) {
		m.cursor = len(m.profiles) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *ProfilesModel) Init() tea.Cmd {
	return nil
}

func (m *ProfilesModel) startEdit(p *storage.Profile) tea.Cmd {
	inputs := make([]textinput.Model, profFieldCount)

	prompts := []struct {
		prompt      string
		placeholder string
	}{
		{"Name: ", "Build VM"},
		{"Jump host: ", "sshgateway"},
		{"Jump user: ", "username"},
		{"Target host: ", "10.0.0.5"},
		{"Target user: ", "username"},
		{"Remote path: ", "~/uploads"},
		{"Description: ", "(optional)"},
	}

	for i, f := range prompts {
		inputs[i] = textinput.New()
		inputs[i].Prompt = f.prompt
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = 256
		inputs[i].Width = 50
	}
	inputs[0].Focus()

	m.editID = ""
	if p != nil {
		m.editID = p.ID
		inputs[profName].SetValue(p.Name)
		inputs[profJumpHost].SetValue(p.JumpHost)
		inputs[profJumpUser].SetValue(p.JumpUser)
		inputs[profTargetHost].SetValue(p.TargetHost)
		inputs[profTargetUser].SetValue(p.TargetUser)
		inputs[profRemotePath].SetValue(p.RemotePath)
		inputs[profDescription].SetValue(p.Description)
	}

	m.inputs = inputs
	m.focused = 0
	m.editing = true
	m.err = nil
	return textinput.Blink
}

func (m *ProfilesModel) saveEdit() tea.Cmd {
	name := strings.TrimSpace(m.inputs[profName].Value())
	targetHost := strings.TrimSpace(m.inputs[profTargetHost].Value())
	if name == "" || targetHost == "" {
		m.err = fmt.Errorf("name and target host are required")
		return nil
	}

	now := time.Now().Unix()
	profile := &storage.Profile{
		ID:          m.editID,
		Name:        name,
		JumpHost:    strings.TrimSpace(m.inputs[profJumpHost].Value()),
		JumpUser:    strings.TrimSpace(m.inputs[profJumpUser].Value()),
		TargetHost:  targetHost,
		TargetUser:  strings.TrimSpace(m.inputs[profTargetUser].Value()),
		RemotePath:  strings.TrimSpace(m.inputs[profRemotePath].Value()),
		Description: strings.TrimSpace(m.inputs[profDescription].Value()),
		UpdatedAt:   now,
	}

	var err error
	if m.editID == "" {
		profile.ID = fmt.Sprintf("%d", now)
		profile.CreatedAt = now
		err = m.store.Add(profile)
	} else {
		if existing, getErr := m.store.Get(m.editID); getErr == nil {
			profile.CreatedAt = existing.CreatedAt
		}
		err = m.store.Update(profile)
	}

	if err != nil {
		m.err = err
		return nil
	}

	m.editing = false
	m.statusMsg = fmt.Sprintf("✓ Saved %s", name)
	m.reload()
	return RunAutoBackup(m.store, m.settingsStore)
}

func (m *ProfilesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case AutoBackupMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("auto backup failed: %w", msg.err)
		} else {
			m.statusMsg += " • backed up"
		}
		return m, nil

	case ConfirmAnsweredMsg:
		if m.confirm == nil {
			return m, nil
		}
		m.confirm = nil
		var cmd tea.Cmd
		if msg.Yes && m.deleteID != "" {
			if err := m.store.Delete(m.deleteID); err != nil {
				m.err = err
			} else {
				m.statusMsg = "✓ Deleted"
				m.reload()
				cmd = RunAutoBackup(m.store, m.settingsStore)
			}
		}
		m.deleteID = ""
		return m, cmd

	case tea.KeyMsg:
		if m.confirm != nil {
			updated, cmd := m.confirm.Update(msg)
			m.confirm = updated.(*ConfirmModel)
			return m, cmd
		}
		if m.editing {
			return m.updateEdit(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *ProfilesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.profiles)-1 {
			m.cursor++
		}

	case "a":
		return m, m.startEdit(nil)

	case "e":
		if len(m.profiles) > 0 {
			return m, m.startEdit(m.profiles[m.cursor])
		}

	case "d":
		if len(m.profiles) > 0 {
			p := m.profiles[m.cursor]
			m.deleteID = p.ID
			m.confirm = NewConfirmModel("Delete destination?", p.Name)
		}

	case "enter":
		if len(m.profiles) > 0 {
			profile := m.profiles[m.cursor]
			return m, func() tea.Msg {
				return ProfileChosenMsg{Profile: profile}
			}
		}
	}

	return m, nil
}

func (m *ProfilesModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if msg.String() == "up" || msg.String() == "shift+tab" {
			m.focused--
		} else {
			m.focused++
		}
		if m.focused > len(m.inputs)-1 {
			m.focused = 0
		} else if m.focused < 0 {
			m.focused = len(m.inputs) - 1
		}
		for i := range m.inputs {
			if i == m.focused {
				m.inputs[i].Focus()
			} else {
				m.inputs[i].Blur()
			}
		}
		return m, nil

	case "enter":
		return m, m.saveEdit()

	case "esc":
		m.editing = false
		m.err = nil
		return m, nil
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *ProfilesModel) View() string {
	if m.confirm != nil {
		return m.confirm.View()
	}

	var b strings.Builder

	if m.editing {
		b.WriteString(titleStyle.Render("✏️ Edit Destination"))
		b.WriteString("\n\n")
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab: next • enter: save • esc: cancel"))
		if m.err != nil {
			b.WriteString("\n\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		return boxStyle.Render(b.String())
	}

	b.WriteString(titleStyle.Render("📁 Saved Destinations"))
	b.WriteString("\n\n")

	if len(m.profiles) == 0 {
		b.WriteString(dimStyle.Render("No saved destinations yet. Press 'a' to add one."))
		b.WriteString("\n")
	}

	for i, p := range m.profiles {
		line := fmt.Sprintf("%s  (%s@%s via %s)", p.Name, p.TargetUser, p.TargetHost, p.JumpHost)
		cursor := " "
		if m.cursor == i {
			cursor = ">"
			line = selectedItemStyle.Render(line)
		} else {
			line = itemStyle.Render(line)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", cursor, line))
		if m.cursor == i && p.Description != "" {
			b.WriteString(dimStyle.Render("    " + p.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: upload here • a: add • e: edit • d: delete • esc: back"))

	if m.statusMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(successStyle.Render(m.statusMsg))
	}
	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return boxStyle.Render(b.String())
}
