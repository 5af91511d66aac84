package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/session"
	"github.com/hopsync/hopsync/pkg/storage"
)

// AppState represents the current screen of the application
type AppState int

const (
	StateMenu AppState = iota
	StateSetup
	StateTransfer
	StateProfiles
	StateSettings
	StateBackup
	StateConfirmQuit
)

// AppModel is the root model that routes messages to the active screen.
// It owns the stores and the connection supervisor so that the session
// survives screen changes.
type AppModel struct {
	state     AppState
	prevState AppState

	menuModel     MenuModel
	setupModel    *SetupModel
	transferModel *TransferModel
	profilesModel *ProfilesModel
	settingsModel *SettingsModel
	backupModel   *BackupModel
	quitConfirm   *ConfirmModel

	store         *storage.Store
	settingsStore *storage.SettingsStore
	supervisor    *session.Supervisor
	events        chan tea.Msg

	width  int
	height int
}

// NewAppModel creates the application rooted at the user's data directory
func NewAppModel() (*AppModel, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".hopsync")
	store, err := storage.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	settingsStore, err := storage.NewSettingsStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}

	events := make(chan tea.Msg, 16)
	settings := settingsStore.Get()
	supervisor := session.NewSupervisor(
		NewUIPrompter(events),
		session.WithBackoff(
			time.Duration(settings.AuthRetrySec)*time.Second,
			time.Duration(settings.TransportRetrySec)*time.Second,
		),
	)

	return &AppModel{
		state:         StateMenu,
		menuModel:     NewMenuModel(),
		store:         store,
		settingsStore: settingsStore,
		supervisor:    supervisor,
		events:        events,
	}, nil
}

// Close tears down the live session, if any
func (m *AppModel) Close() {
	m.supervisor.Close()
}

func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.state == StateConfirmQuit {
				return m, nil
			}
			m.prevState = m.state
			m.quitConfirm = NewConfirmModel("Exit?", "An active session will be closed.")
			m.state = StateConfirmQuit
			return m, nil
		}
	}

	switch m.state {
	case StateMenu:
		return m.updateMenu(msg)
	case StateSetup:
		return m.updateSetup(msg)
	case StateTransfer:
		return m.updateTransfer(msg)
	case StateProfiles:
		return m.updateProfiles(msg)
	case StateSettings:
		return m.updateSettings(msg)
	case StateBackup:
		return m.updateBackup(msg)
	case StateConfirmQuit:
		return m.updateConfirmQuit(msg)
	default:
		return m, nil
	}
}

func (m AppModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	updatedModel, cmd := m.menuModel.Update(msg)
	m.menuModel = updatedModel.(MenuModel)

	switch m.menuModel.selected {
	case MenuUpload:
		m.state = StateSetup
		m.setupModel = NewSetupModel(m.settingsStore.Get())
		m.menuModel.selected = MenuNone
		return m, m.setupModel.Init()

	case MenuProfiles:
		m.state = StateProfiles
		m.profilesModel = NewProfilesModel(m.store, m.settingsStore)
		m.menuModel.selected = MenuNone
		return m, m.profilesModel.Init()

	case MenuSettings:
		m.state = StateSettings
		m.settingsModel = NewSettingsModel(m.settingsStore)
		m.menuModel.selected = MenuNone
		return m, m.settingsModel.Init()

	case MenuBackup:
		m.state = StateBackup
		m.backupModel = NewBackupModel(m.store, m.settingsStore)
		m.menuModel.selected = MenuNone
		return m, m.backupModel.Init()

	case MenuQuit:
		m.Close()
		return m, tea.Quit
	}

	return m, cmd
}

func (m AppModel) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			m.state = StateMenu
			return m, nil
		}
	case SetupDoneMsg:
		m.state = StateTransfer
		m.transferModel = NewTransferModel(msg.Plan, m.supervisor, m.events)
		return m, m.transferModel.Init()
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.setupModel.Update(msg)
	m.setupModel = updatedModel.(*SetupModel)
	return m, cmd
}

func (m AppModel) updateTransfer(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TransferExitMsg:
		m.state = StateMenu
		return m, nil

	case TransferNewMsg:
		m.state = StateSetup
		m.setupModel = NewSetupModel(m.settingsStore.Get())
		return m, m.setupModel.Init()

	case SaveProfileMsg:
		now := time.Now().Unix()
		profile := &storage.Profile{
			ID:         fmt.Sprintf("%d", now),
			Name:       msg.Plan.Endpoints.Target.Label(),
			JumpHost:   msg.Plan.Endpoints.Jump.Host,
			JumpUser:   msg.Plan.Endpoints.Jump.Username,
			TargetHost: msg.Plan.Endpoints.Target.Host,
			TargetUser: msg.Plan.Endpoints.Target.Username,
			RemotePath: msg.Plan.RemotePath,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := m.store.Add(profile); err != nil {
			m.transferModel.notice = fmt.Sprintf("✗ Save failed: %v", err)
			return m, nil
		}
		m.transferModel.notice = fmt.Sprintf("✓ Saved destination %s", profile.Name)
		return m, RunAutoBackup(m.store, m.settingsStore)

	case AutoBackupMsg:
		if msg.err != nil {
			m.transferModel.notice = fmt.Sprintf("✗ Auto backup failed: %v", msg.err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.transferModel.Update(msg)
	m.transferModel = updatedModel.(*TransferModel)
	return m, cmd
}

func (m AppModel) updateProfiles(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" && !m.profilesModel.editing && m.profilesModel.confirm == nil {
			m.state = StateMenu
			return m, nil
		}
	case ProfileChosenMsg:
		m.state = StateSetup
		m.setupModel = NewSetupModelFromProfile(m.settingsStore.Get(), msg.Profile)
		return m, m.setupModel.Init()
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.profilesModel.Update(msg)
	m.profilesModel = updatedModel.(*ProfilesModel)
	return m, cmd
}

func (m AppModel) updateSettings(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == "esc" && m.settingsModel.focused < 0 {
			m.state = StateMenu
			return m, nil
		}
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.settingsModel.Update(msg)
	m.settingsModel = updatedModel.(*SettingsModel)
	return m, cmd
}

func (m AppModel) updateBackup(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == "esc" && !m.backupModel.focused {
			m.state = StateMenu
			return m, nil
		}
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.backupModel.Update(msg)
	m.backupModel = updatedModel.(*BackupModel)
	return m, cmd
}

func (m AppModel) updateConfirmQuit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if answer, ok := msg.(ConfirmAnsweredMsg); ok {
		if answer.Yes {
			m.Close()
			return m, tea.Quit
		}
		m.state = m.prevState
		return m, nil
	}

	var cmd tea.Cmd
	updatedModel, cmd := m.quitConfirm.Update(msg)
	m.quitConfirm = updatedModel.(*ConfirmModel)
	return m, cmd
}

func (m AppModel) View() string {
	switch m.state {
	case StateMenu:
		return m.menuModel.View()
	case StateSetup:
		return m.setupModel.View()
	case StateTransfer:
		return m.transferModel.View()
	case StateProfiles:
		return m.profilesModel.View()
	case StateSettings:
		return m.settingsModel.View()
	case StateBackup:
		return m.backupModel.View()
	case StateConfirmQuit:
		return m.quitConfirm.View()
	default:
		return "Unknown state"
	}
}
