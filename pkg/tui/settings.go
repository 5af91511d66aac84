package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/storage"
)

const (
	setJumpHost = iota
	setJumpUser
	setTargetHost
	setTargetUser
	setPort
	setS3Host
	setS3AccessKey
	setS3SecretKey
	setInputCount
)

// rows after the inputs: the two toggles and the save action
const (
	rowConvert = setInputCount + iota
	rowAutoBackup
	rowSave
	rowCount
)

// SettingsModel edits connection defaults and the backup configuration
type SettingsModel struct {
	settingsStore *storage.SettingsStore
	inputs        []textinput.Model
	cursor        int
	focused       int
	convert       bool
	autoBackup    bool
	statusMsg     string
	err           error
	width         int
	height        int
}

// NewSettingsModel creates the settings screen from the stored values
func NewSettingsModel(settingsStore *storage.SettingsStore) *SettingsModel {
	settings := settingsStore.Get()

	inputs := make([]textinput.Model, setInputCount)

	fields := []struct {
		prompt      string
		placeholder string
		value       string
		secret      bool
	}{
		{"Jump host: ", "sshgateway", settings.JumpHost, false},
		{"Jump user: ", "username", settings.JumpUser, false},
		{"Target host: ", "10.0.0.5", settings.TargetHost, false},
		{"Target user: ", "username", settings.TargetUser, false},
		{"SSH port: ", "22", strconv.Itoa(settings.Port), false},
		{"S3 host: ", "https://s3.example.com", settings.S3Host, false},
		{"S3 access key: ", "Access Key ID", settings.S3AccessKey, false},
		{"S3 secret key: ", "Secret Access Key", settings.S3SecretKey, true},
	}

	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Prompt = f.prompt
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = 256
		inputs[i].Width = 50
		inputs[i].SetValue(f.value)
		if f.secret {
			inputs[i].EchoMode = textinput.EchoPassword
			inputs[i].EchoCharacter = '•'
		}
	}

	return &SettingsModel{
		settingsStore: settingsStore,
		inputs:        inputs,
		focused:       -1,
		convert:       settings.ConvertLineEndings,
		autoBackup:    settings.AutoBackup,
	}
}

func (m *SettingsModel) Init() tea.Cmd {
	return nil
}

func (m *SettingsModel) save() {
	port, err := strconv.Atoi(strings.TrimSpace(m.inputs[setPort].Value()))
	if err != nil || port <= 0 || port > 65535 {
		m.err = fmt.Errorf("invalid port: %s", m.inputs[setPort].Value())
		return
	}

	settings := m.settingsStore.Get()
	settings.JumpHost = strings.TrimSpace(m.inputs[setJumpHost].Value())
	settings.JumpUser = strings.TrimSpace(m.inputs[setJumpUser].Value())
	settings.TargetHost = strings.TrimSpace(m.inputs[setTargetHost].Value())
	settings.TargetUser = strings.TrimSpace(m.inputs[setTargetUser].Value())
	settings.Port = port
	settings.S3Host = strings.TrimSpace(m.inputs[setS3Host].Value())
	settings.S3AccessKey = strings.TrimSpace(m.inputs[setS3AccessKey].Value())
	settings.S3SecretKey = strings.TrimSpace(m.inputs[setS3SecretKey].Value())
	settings.ConvertLineEndings = m.convert
	settings.AutoBackup = m.autoBackup

	if err := m.settingsStore.Update(settings); err != nil {
		m.err = err
		return
	}

	m.err = nil
	m.statusMsg = "✓ Settings saved"
}

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// An input owns the keys while focused
		if m.focused >= 0 {
			switch msg.String() {
			case "enter", "esc", "tab":
				m.inputs[m.focused].Blur()
				m.focused = -1
				return m, nil
			default:
				var cmd tea.Cmd
				m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < rowCount-1 {
				m.cursor++
			}

		case "enter", " ":
			switch {
			case m.cursor < setInputCount:
				m.focused = m.cursor
				m.inputs[m.focused].Focus()
				return m, textinput.Blink
			case m.cursor == rowConvert:
				m.convert = !m.convert
			case m.cursor == rowAutoBackup:
				m.autoBackup = !m.autoBackup
			case m.cursor == rowSave:
				m.save()
			}
		}
	}

	return m, nil
}

func (m *SettingsModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⚙️ Settings"))
	b.WriteString("\n\n")

	for i := range m.inputs {
		cursor := "  "
		if m.cursor == i && m.focused < 0 {
			cursor = "→ "
		}
		b.WriteString(cursor + m.inputs[i].View() + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.toggleRow(rowConvert, "Convert CRLF to LF in text files", m.convert))
	b.WriteString(m.toggleRow(rowAutoBackup, "Back up destinations after changes", m.autoBackup))

	b.WriteString("\n")
	saveCursor := " "
	saveStyle := itemStyle
	if m.cursor == rowSave {
		saveCursor = ">"
		saveStyle = selectedItemStyle
	}
	b.WriteString(fmt.Sprintf("%s %s\n", saveCursor, saveStyle.Render("💾 Save")))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter: edit/toggle • esc: back"))

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

func (m *SettingsModel) toggleRow(row int, label string, on bool) string {
	mark := "[ ]"
	if on {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s %s", mark, label)
	cursor := " "
	if m.cursor == row {
		cursor = ">"
		line = selectedItemStyle.Render(line)
	} else {
		line = itemStyle.Render(line)
	}
	return fmt.Sprintf("%s %s\n", cursor, line)
}
