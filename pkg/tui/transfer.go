package tui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	hsftp "github.com/hopsync/hopsync/pkg/sftp"
	"github.com/hopsync/hopsync/pkg/session"
)

// transferPhase tracks where in the upload pipeline the screen is
type transferPhase int

const (
	phaseConnecting transferPhase = iota
	phasePrompting
	phaseProbing
	phaseConfirmCreate
	phaseEditRemote
	phaseUploading
	phaseSummary
)

// promptRequest is one secret request from the connection supervisor.
// The reply channel is buffered so the UI never blocks on it.
type promptRequest struct {
	label string
	reply chan promptReply
}

type promptReply struct {
	secret    string
	cancelled bool
}

// UIPrompter bridges the supervisor's blocking Secret calls into the
// event loop. Requests surface as messages; replies flow back over the
// per-request channel.
type UIPrompter struct {
	events chan tea.Msg
}

// NewUIPrompter creates a prompter that publishes requests on events
func NewUIPrompter(events chan tea.Msg) *UIPrompter {
	return &UIPrompter{events: events}
}

// Secret blocks until the user answers the prompt or ctx ends
func (p *UIPrompter) Secret(ctx context.Context, label string) (string, error) {
	req := promptRequest{label: label, reply: make(chan promptReply, 1)}

	select {
	case p.events <- promptRequestMsg{req: req}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-req.reply:
		if r.cancelled {
			return "", fmt.Errorf("password prompt cancelled")
		}
		return r.secret, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Messages produced by the transfer pipeline

type promptRequestMsg struct{ req promptRequest }

type connectedMsg struct {
	conn session.Conn
	err  error
}

type probeResultMsg struct {
	resolved string
	exists   bool
	writable bool
	err      error
}

type mkdirResultMsg struct {
	path string
	err  error
}

type uploadEventMsg struct{ ev hsftp.Event }

type uploadDoneMsg struct {
	result hsftp.Result
	err    error
}

type verifyListingMsg struct{ listing string }

// TransferExitMsg tells the app to leave the transfer screen
type TransferExitMsg struct{}

// TransferNewMsg tells the app to start over with a fresh destination form
type TransferNewMsg struct{}

// SaveProfileMsg asks the app to save the current destination
type SaveProfileMsg struct{ Plan Plan }

// TransferModel drives one upload end to end: connect, validate the
// remote directory, mirror the tree, summarize. The session outlives the
// screen; the supervisor hands it back for the next upload.
type TransferModel struct {
	plan       Plan
	supervisor *session.Supervisor
	events     chan tea.Msg

	phase      transferPhase
	spin       spinner.Model
	prompt     *PasswordPromptModel
	confirm    *ConfirmModel
	remoteEdit textinput.Model
	pending    promptRequest
	prompted   map[string]bool

	ctx    context.Context
	cancel context.CancelFunc

	conn       session.Conn
	client     *hsftp.Client
	resolved   string // remote root after ~ expansion
	uploadRoot string // resolved + basename of the local dir

	current  string
	result   hsftp.Result
	failures []string
	listing  string
	notice   string
	err      error

	width  int
	height int
}

// NewTransferModel creates the transfer screen for one plan. The events
// channel must be the one the supervisor's prompter publishes to.
func NewTransferModel(plan Plan, supervisor *session.Supervisor, events chan tea.Msg) *TransferModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	edit := textinput.New()
	edit.Placeholder = "~/uploads"
	edit.CharLimit = 512
	edit.Width = 50
	edit.Prompt = "Remote directory: "

	ctx, cancel := context.WithCancel(context.Background())

	return &TransferModel{
		plan:       plan,
		supervisor: supervisor,
		events:     events,
		phase:      phaseConnecting,
		spin:       sp,
		remoteEdit: edit,
		prompted:   make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (m *TransferModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.connect(), m.waitForActivity())
}

// waitForActivity relays one message from the pipeline goroutines
func (m *TransferModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// connect acquires a live session, prompting through the UI as needed
func (m *TransferModel) connect() tea.Cmd {
	return func() tea.Msg {
		conn, err := m.supervisor.Acquire(m.ctx, m.plan.Endpoints)
		return connectedMsg{conn: conn, err: err}
	}
}

// defaultCommandTimeout bounds each remote shell probe so a hung target
// cannot wedge the screen
const defaultCommandTimeout = 30 * time.Second

func (m *TransferModel) commandTimeout() time.Duration {
	if m.plan.CommandTimeout > 0 {
		return m.plan.CommandTimeout
	}
	return defaultCommandTimeout
}

// probe validates the remote directory over the established session
func (m *TransferModel) probe(remotePath string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.commandTimeout())
		defer cancel()
		prober := hsftp.NewProber(m.client)

		resolved, err := prober.ExpandHome(ctx, remotePath)
		if err != nil {
			return probeResultMsg{err: err}
		}

		exists, err := prober.IsDir(ctx, resolved)
		if err != nil {
			return probeResultMsg{err: err}
		}
		if !exists {
			return probeResultMsg{resolved: resolved}
		}

		writable, err := prober.IsWritable(ctx, resolved)
		if err != nil {
			return probeResultMsg{err: err}
		}

		return probeResultMsg{resolved: resolved, exists: true, writable: writable}
	}
}

func (m *TransferModel) mkdirRemote(remotePath string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.commandTimeout())
		defer cancel()
		prober := hsftp.NewProber(m.client)
		return mkdirResultMsg{path: remotePath, err: prober.MkdirAll(ctx, remotePath)}
	}
}

// upload mirrors the local tree onto the target. Engine events are
// forwarded to the UI through the shared channel.
func (m *TransferModel) upload() tea.Cmd {
	return func() tea.Msg {
		engine := hsftp.NewEngine(m.client, m.plan.Convert, func(ev hsftp.Event) {
			// Dropped when the UI falls behind; the final counts come
			// from the engine result, not from these events.
			select {
			case m.events <- uploadEventMsg{ev: ev}:
			default:
			}
		})
		result, err := engine.Upload(m.ctx, m.plan.LocalPath, m.resolved)
		return uploadDoneMsg{result: result, err: err}
	}
}

// verify lists the head of the freshly created remote directory so the
// user can see the upload landed
func (m *TransferModel) verify() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.commandTimeout())
		defer cancel()
		prober := hsftp.NewProber(m.client)
		listing, err := prober.ListDirHead(ctx, m.uploadRoot, 10)
		if err != nil {
			return verifyListingMsg{listing: ""}
		}
		return verifyListingMsg{listing: listing}
	}
}

func (m *TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case promptRequestMsg:
		m.pending = msg.req
		m.prompt = NewPasswordPromptModel("🔐 Authentication", msg.req.label)
		if m.prompted[msg.req.label] {
			m.prompt.SetError(fmt.Errorf("authentication failed, try again"))
		}
		m.prompted[msg.req.label] = true
		m.phase = phasePrompting
		return m, tea.Batch(m.prompt.Init(), m.waitForActivity())

	case PasswordSubmittedMsg:
		if m.phase != phasePrompting {
			return m, nil
		}
		m.pending.reply <- promptReply{secret: msg.Password, cancelled: msg.Cancelled}
		m.phase = phaseConnecting
		return m, nil

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseSummary
			return m, nil
		}
		m.conn = msg.conn
		client, ok := msg.conn.(*hsftp.Client)
		if !ok {
			m.err = fmt.Errorf("session does not support uploads")
			m.phase = phaseSummary
			return m, nil
		}
		m.client = client
		m.phase = phaseProbing
		return m, m.probe(m.plan.RemotePath)

	case probeResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseSummary
			return m, nil
		}
		m.resolved = msg.resolved
		if !msg.exists {
			m.confirm = NewConfirmModel(
				"Remote directory does not exist. Create it?",
				msg.resolved,
			)
			m.phase = phaseConfirmCreate
			return m, nil
		}
		if !msg.writable {
			m.phase = phaseEditRemote
			m.err = fmt.Errorf("directory is not writable: %s", msg.resolved)
			m.remoteEdit.SetValue(m.plan.RemotePath)
			m.remoteEdit.Focus()
			return m, textinput.Blink
		}
		return m, m.startUpload()

	case ConfirmAnsweredMsg:
		if m.phase != phaseConfirmCreate {
			return m, nil
		}
		if msg.Yes {
			m.phase = phaseProbing
			return m, m.mkdirRemote(m.resolved)
		}
		m.phase = phaseEditRemote
		m.err = nil
		m.remoteEdit.SetValue(m.plan.RemotePath)
		m.remoteEdit.Focus()
		return m, textinput.Blink

	case mkdirResultMsg:
		if msg.err != nil {
			m.phase = phaseEditRemote
			m.err = msg.err
			m.remoteEdit.SetValue(m.plan.RemotePath)
			m.remoteEdit.Focus()
			return m, textinput.Blink
		}
		return m, m.probe(msg.path)

	case uploadEventMsg:
		switch msg.ev.Kind {
		case hsftp.EventUploading:
			m.current = msg.ev.Path
		case hsftp.EventUploaded:
			m.result.Uploaded++
		case hsftp.EventConverted:
			m.result.Converted++
		case hsftp.EventFailed:
			m.result.Failed++
			m.failures = append(m.failures, fmt.Sprintf("%s: %v", msg.ev.Path, msg.ev.Err))
		}
		return m, m.waitForActivity()

	case uploadDoneMsg:
		m.result = msg.result
		m.err = msg.err
		if errors.Is(msg.err, context.Canceled) {
			m.err = fmt.Errorf("upload stopped")
		}
		m.current = ""
		m.phase = phaseSummary
		if msg.err == nil {
			return m, m.verify()
		}
		return m, nil

	case verifyListingMsg:
		m.listing = msg.listing
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	// Cursor blink and other widget messages go to the active input
	switch m.phase {
	case phasePrompting:
		updated, cmd := m.prompt.Update(msg)
		m.prompt = updated.(*PasswordPromptModel)
		return m, cmd
	case phaseEditRemote:
		var cmd tea.Cmd
		m.remoteEdit, cmd = m.remoteEdit.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startUpload moves to the upload phase once the remote directory checks
// passed
func (m *TransferModel) startUpload() tea.Cmd {
	m.uploadRoot = path.Join(m.resolved, filepath.Base(filepath.Clean(m.plan.LocalPath)))
	m.result = hsftp.Result{}
	m.failures = nil
	m.err = nil
	m.phase = phaseUploading
	return m.upload()
}

func (m *TransferModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phasePrompting:
		updated, cmd := m.prompt.Update(msg)
		m.prompt = updated.(*PasswordPromptModel)
		return m, cmd

	case phaseConfirmCreate:
		updated, cmd := m.confirm.Update(msg)
		m.confirm = updated.(*ConfirmModel)
		return m, cmd

	case phaseEditRemote:
		switch msg.String() {
		case "enter":
			remotePath := strings.TrimSpace(m.remoteEdit.Value())
			if remotePath == "" {
				return m, nil
			}
			m.plan.RemotePath = remotePath
			m.err = nil
			m.phase = phaseProbing
			return m, m.probe(remotePath)
		case "esc":
			m.cancel()
			return m, func() tea.Msg { return TransferExitMsg{} }
		}
		var cmd tea.Cmd
		m.remoteEdit, cmd = m.remoteEdit.Update(msg)
		return m, cmd

	case phaseConnecting, phaseProbing:
		if msg.String() == "esc" {
			m.cancel()
			return m, func() tea.Msg { return TransferExitMsg{} }
		}

	case phaseUploading:
		if msg.String() == "esc" {
			// Stops between files; the current file finishes
			m.cancel()
		}

	case phaseSummary:
		switch msg.String() {
		case "r":
			// Retry the same plan over the existing (or a fresh) session
			m.ctx, m.cancel = context.WithCancel(context.Background())
			m.phase = phaseConnecting
			m.err = nil
			m.listing = ""
			return m, tea.Batch(m.connect(), m.waitForActivity())
		case "u":
			return m, func() tea.Msg { return TransferNewMsg{} }
		case "s":
			plan := m.plan
			return m, func() tea.Msg { return SaveProfileMsg{Plan: plan} }
		case "q", "esc":
			return m, func() tea.Msg { return TransferExitMsg{} }
		}
	}

	return m, nil
}

func (m *TransferModel) View() string {
	switch m.phase {
	case phasePrompting:
		return m.prompt.View()
	case phaseConfirmCreate:
		return m.confirm.View()
	default:
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("📤 Upload"))
	b.WriteString("\n\n")
	b.WriteString(itemStyle.Render(fmt.Sprintf("%s → %s:%s",
		m.plan.LocalPath, m.plan.Endpoints.Target.Host, m.plan.RemotePath)))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseConnecting:
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s Connecting via %s...",
			m.spin.View(), m.plan.Endpoints.Jump.Host)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc: cancel"))

	case phaseProbing:
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s Checking remote directory...", m.spin.View())))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc: cancel"))

	case phaseEditRemote:
		b.WriteString(m.remoteEdit.View())
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("enter: check again • esc: back"))

	case phaseUploading:
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s Uploading %s", m.spin.View(), m.current)))
		b.WriteString("\n\n")
		b.WriteString(itemStyle.Render(fmt.Sprintf("Uploaded: %d  Converted: %d  Failed: %d",
			m.result.Uploaded, m.result.Converted, m.result.Failed)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc: stop after current file"))

	case phaseSummary:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", m.err)))
			b.WriteString("\n\n")
		}
		if m.result.Complete() && m.err == nil {
			b.WriteString(successStyle.Render(fmt.Sprintf("✓ %s", m.result)))
		} else {
			b.WriteString(itemStyle.Render(m.result.String()))
		}
		b.WriteString("\n")

		if len(m.failures) > 0 {
			b.WriteString("\n")
			max := len(m.failures)
			if max > 5 {
				max = 5
			}
			for _, f := range m.failures[:max] {
				b.WriteString(errorStyle.Render("  ✗ " + f))
				b.WriteString("\n")
			}
			if len(m.failures) > max {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  ...and %d more", len(m.failures)-max)))
				b.WriteString("\n")
			}
		}

		if m.listing != "" {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(m.uploadRoot + ":"))
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(strings.TrimRight(m.listing, "\n")))
			b.WriteString("\n")
		}

		if m.notice != "" {
			b.WriteString("\n")
			b.WriteString(successStyle.Render(m.notice))
			b.WriteString("\n")
		}

		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r: retry • u: new upload • s: save destination • q: menu"))
	}

	return boxStyle.Render(b.String())
}
