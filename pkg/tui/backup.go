package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/s3"
	"github.com/hopsync/hopsync/pkg/storage"
)

// BackupMsg carries the result of a snapshot upload
type BackupMsg struct{ err error }

// AutoBackupMsg carries the result of an automatic snapshot
type AutoBackupMsg struct{ err error }

// RunAutoBackup snapshots the destinations in the background after a
// change, when enabled and the S3 endpoint is configured. The snapshot is
// sealed with the stored S3 secret key; restoring one interactively asks
// for that key as the passphrase.
func RunAutoBackup(store *storage.Store, settingsStore *storage.SettingsStore) tea.Cmd {
	settings := settingsStore.Get()
	if !settings.AutoBackup || settings.S3Host == "" {
		return nil
	}

	return func() tea.Msg {
		client, err := s3.NewClient(settings.S3Host, settings.S3AccessKey, settings.S3SecretKey)
		if err != nil {
			return AutoBackupMsg{err: err}
		}

		data, err := store.Export()
		if err != nil {
			return AutoBackupMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		return AutoBackupMsg{err: client.Snapshot(ctx, data, settings.S3SecretKey)}
	}
}

// RestoreMsg carries the result of a snapshot restore
type RestoreMsg struct{ err error }

// BackupModel snapshots the saved destinations to S3 and restores them.
// The S3 endpoint comes from settings; only the passphrase is asked here.
type BackupModel struct {
	store         *storage.Store
	settingsStore *storage.SettingsStore
	passphrase    textinput.Model
	cursor        int // 0 = passphrase, 1 = backup, 2 = restore
	focused       bool
	inProgress    bool
	statusMsg     string
	err           error
	width         int
	height        int
}

// NewBackupModel creates the backup screen
func NewBackupModel(store *storage.Store, settingsStore *storage.SettingsStore) *BackupModel {
	input := textinput.New()
	input.Placeholder = "Encryption passphrase"
	input.CharLimit = 128
	input.Width = 40
	input.Prompt = "Passphrase: "
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'

	return &BackupModel{
		store:         store,
		settingsStore: settingsStore,
		passphrase:    input,
	}
}

func (m *BackupModel) Init() tea.Cmd {
	return nil
}

func (m *BackupModel) newS3Client() (*s3.Client, error) {
	settings := m.settingsStore.Get()
	return s3.NewClient(settings.S3Host, settings.S3AccessKey, settings.S3SecretKey)
}

func (m *BackupModel) performBackup() tea.Cmd {
	passphrase := m.passphrase.Value()
	return func() tea.Msg {
		if passphrase == "" {
			return BackupMsg{err: fmt.Errorf("passphrase is required")}
		}

		client, err := m.newS3Client()
		if err != nil {
			return BackupMsg{err: err}
		}

		data, err := m.store.Export()
		if err != nil {
			return BackupMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		return BackupMsg{err: client.Snapshot(ctx, data, passphrase)}
	}
}

func (m *BackupModel) performRestore() tea.Cmd {
	passphrase := m.passphrase.Value()
	return func() tea.Msg {
		if passphrase == "" {
			return RestoreMsg{err: fmt.Errorf("passphrase is required")}
		}

		client, err := m.newS3Client()
		if err != nil {
			return RestoreMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		data, err := client.RestoreLatest(ctx, passphrase)
		if err != nil {
			return RestoreMsg{err: err}
		}

		return RestoreMsg{err: m.store.Import(data)}
	}
}

func (m *BackupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case BackupMsg:
		m.inProgress = false
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = ""
		} else {
			m.err = nil
			m.statusMsg = "✓ Destinations backed up"
		}
		return m, nil

	case RestoreMsg:
		m.inProgress = false
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = ""
		} else {
			m.err = nil
			m.statusMsg = "✓ Destinations restored"
		}
		return m, nil

	case tea.KeyMsg:
		if m.focused {
			switch msg.String() {
			case "enter", "esc", "tab":
				m.passphrase.Blur()
				m.focused = false
				return m, nil
			default:
				var cmd tea.Cmd
				m.passphrase, cmd = m.passphrase.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < 2 {
				m.cursor++
			}

		case "enter", " ":
			switch m.cursor {
			case 0:
				m.focused = true
				m.passphrase.Focus()
				return m, textinput.Blink
			case 1:
				m.inProgress = true
				m.statusMsg = "Uploading encrypted snapshot..."
				return m, m.performBackup()
			case 2:
				m.inProgress = true
				m.statusMsg = "Fetching latest snapshot..."
				return m, m.performRestore()
			}
		}
	}

	return m, nil
}

func (m *BackupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("☁️ Backup & Restore"))
	b.WriteString("\n\n")

	settings := m.settingsStore.Get()
	if settings.S3Host == "" {
		b.WriteString(dimStyle.Render("Configure the S3 endpoint in Settings first."))
		b.WriteString("\n\n")
	} else {
		b.WriteString(dimStyle.Render("Endpoint: " + settings.S3Host))
		b.WriteString("\n\n")
	}

	cursor := "  "
	if m.cursor == 0 && !m.focused {
		cursor = "→ "
	}
	b.WriteString(cursor + m.passphrase.View() + "\n\n")

	rows := []string{"⬆️  Backup destinations to S3", "⬇️  Restore latest snapshot"}
	for i, label := range rows {
		c := " "
		style := itemStyle
		if m.cursor == i+1 {
			c = ">"
			style = selectedItemStyle
		}
		b.WriteString(fmt.Sprintf("%s %s\n", c, style.Render(label)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter: select • esc: back"))

	if m.inProgress {
		b.WriteString("\n\n")
		b.WriteString(successStyle.Render("⏳ " + m.statusMsg))
	} else if m.statusMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(successStyle.Render(m.statusMsg))
	}
	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("🔐 Snapshots are encrypted with Argon2id + AES-256-GCM"))

	return boxStyle.Render(b.String())
}
