package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/session"
	"github.com/hopsync/hopsync/pkg/ssh"
	"github.com/hopsync/hopsync/pkg/storage"
)

// Plan is everything the transfer screen needs to run one upload
type Plan struct {
	Endpoints      session.Endpoints
	LocalPath      string
	RemotePath     string
	Convert        bool
	CommandTimeout time.Duration
}

// SetupDoneMsg is sent when the destination form is submitted
type SetupDoneMsg struct {
	Plan Plan
}

const (
	setupJumpHost = iota
	setupJumpUser
	setupTargetHost
	setupTargetUser
	setupLocalPath
	setupRemotePath
)

// SetupModel collects the two hops and the paths for an upload. Every
// field is pre-filled from settings or a saved destination; an empty
// answer keeps the pre-filled value.
type SetupModel struct {
	inputs   []textinput.Model
	focused  int
	settings storage.Settings
	err      error
	width    int
	height   int
}

// NewSetupModel builds the form from the stored defaults
func NewSetupModel(settings storage.Settings) *SetupModel {
	return newSetupModel(settings, nil)
}

// NewSetupModelFromProfile builds the form pre-filled from a saved
// destination
func NewSetupModelFromProfile(settings storage.Settings, profile *storage.Profile) *SetupModel {
	return newSetupModel(settings, profile)
}

func newSetupModel(settings storage.Settings, profile *storage.Profile) *SetupModel {
	inputs := make([]textinput.Model, 6)

	inputs[setupJumpHost] = textinput.New()
	inputs[setupJumpHost].Placeholder = "sshgateway"
	inputs[setupJumpHost].CharLimit = 253
	inputs[setupJumpHost].Width = 50
	inputs[setupJumpHost].Prompt = "Jump host: "
	inputs[setupJumpHost].SetValue(settings.JumpHost)
	inputs[setupJumpHost].Focus()

	inputs[setupJumpUser] = textinput.New()
	inputs[setupJumpUser].Placeholder = "username"
	inputs[setupJumpUser].CharLimit = 32
	inputs[setupJumpUser].Width = 50
	inputs[setupJumpUser].Prompt = "Jump user: "
	inputs[setupJumpUser].SetValue(settings.JumpUser)

	inputs[setupTargetHost] = textinput.New()
	inputs[setupTargetHost].Placeholder = "10.0.0.5"
	inputs[setupTargetHost].CharLimit = 253
	inputs[setupTargetHost].Width = 50
	inputs[setupTargetHost].Prompt = "Target host: "
	inputs[setupTargetHost].SetValue(settings.TargetHost)

	inputs[setupTargetUser] = textinput.New()
	inputs[setupTargetUser].Placeholder = "username"
	inputs[setupTargetUser].CharLimit = 32
	inputs[setupTargetUser].Width = 50
	inputs[setupTargetUser].Prompt = "Target user: "
	inputs[setupTargetUser].SetValue(settings.TargetUser)

	inputs[setupLocalPath] = textinput.New()
	inputs[setupLocalPath].Placeholder = "/path/to/local/dir"
	inputs[setupLocalPath].CharLimit = 512
	inputs[setupLocalPath].Width = 50
	inputs[setupLocalPath].Prompt = "Local directory: "

	inputs[setupRemotePath] = textinput.New()
	inputs[setupRemotePath].Placeholder = "~/uploads (checked after connecting)"
	inputs[setupRemotePath].CharLimit = 512
	inputs[setupRemotePath].Width = 50
	inputs[setupRemotePath].Prompt = "Remote directory: "

	if profile != nil {
		if profile.JumpHost != "" {
			inputs[setupJumpHost].SetValue(profile.JumpHost)
		}
		if profile.JumpUser != "" {
			inputs[setupJumpUser].SetValue(profile.JumpUser)
		}
		inputs[setupTargetHost].SetValue(profile.TargetHost)
		inputs[setupTargetUser].SetValue(profile.TargetUser)
		inputs[setupRemotePath].SetValue(profile.RemotePath)
	}

	return &SetupModel{
		inputs:   inputs,
		focused:  0,
		settings: settings,
	}
}

func (m *SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
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
			return m, m.submit()
		}
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

// submit validates the form and hands the plan over. The local path must
// name an existing directory; the remote path is probed after the session
// is up.
func (m *SetupModel) submit() tea.Cmd {
	jumpHost := strings.TrimSpace(m.inputs[setupJumpHost].Value())
	jumpUser := strings.TrimSpace(m.inputs[setupJumpUser].Value())
	targetHost := strings.TrimSpace(m.inputs[setupTargetHost].Value())
	targetUser := strings.TrimSpace(m.inputs[setupTargetUser].Value())
	localPath := strings.TrimSpace(m.inputs[setupLocalPath].Value())
	remotePath := strings.TrimSpace(m.inputs[setupRemotePath].Value())

	if jumpHost == "" || jumpUser == "" || targetHost == "" || targetUser == "" {
		m.err = fmt.Errorf("all hosts and usernames are required")
		return nil
	}

	if localPath == "" {
		m.err = fmt.Errorf("local directory is required")
		return nil
	}
	if strings.HasPrefix(localPath, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			localPath = filepath.Join(home, strings.TrimPrefix(localPath, "~"))
		}
	}
	info, err := os.Stat(localPath)
	if err != nil {
		m.err = fmt.Errorf("local path does not exist: %s", localPath)
		return nil
	}
	if !info.IsDir() {
		m.err = fmt.Errorf("local path is not a directory: %s", localPath)
		return nil
	}

	if remotePath == "" {
		remotePath = "~"
	}

	port := m.settings.Port
	if port == 0 {
		port = 22
	}
	connectTimeout := time.Duration(m.settings.ConnectTimeoutSec) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	commandTimeout := time.Duration(m.settings.CommandTimeoutSec) * time.Second

	plan := Plan{
		Endpoints: session.Endpoints{
			Jump: ssh.Config{
				Host:     jumpHost,
				Port:     port,
				Username: jumpUser,
				Timeout:  connectTimeout,
			},
			Target: ssh.Config{
				Host:     targetHost,
				Port:     port,
				Username: targetUser,
				Timeout:  connectTimeout,
			},
		},
		LocalPath:      localPath,
		RemotePath:     remotePath,
		Convert:        m.settings.ConvertLineEndings,
		CommandTimeout: commandTimeout,
	}

	m.err = nil
	return func() tea.Msg {
		return SetupDoneMsg{Plan: plan}
	}
}

func (m *SetupModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))

	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}

	return tea.Batch(cmds...)
}

func (m *SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🌐 Upload Destination"))
	b.WriteString("\n\n")

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		if i < len(m.inputs)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	if m.settings.ConvertLineEndings {
		b.WriteString(dimStyle.Render("Text files will have CRLF converted to LF"))
	} else {
		b.WriteString(dimStyle.Render("Files will be uploaded verbatim"))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: next • enter: start • esc: back"))

	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return boxStyle.Render(b.String())
}
