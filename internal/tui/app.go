package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/flurry/internal/config"
	"github.com/1broseidon/flurry/internal/ipc"
)

const pollInterval = time.Second

// StatusClient is the part of the IPC client the dashboard uses.
type StatusClient interface {
	Reload() error
	GetStatus() (*ipc.StatusData, error)
}

type (
	tickMsg   time.Time
	statusMsg struct {
		data *ipc.StatusData
		err  error
	}
	reloadMsg struct{ err error }
)

// model is the root bubbletea model for the dashboard.
type model struct {
	provider *config.Provider
	client   StatusClient

	status    *ipc.StatusData
	statusErr error
	notice    string
	noticeErr bool

	// Edit mode
	editing  bool
	form     *huh.Form
	settings *Settings
	base     config.Snapshot

	width  int
	height int
}

func newModel(provider *config.Provider, client StatusClient) model {
	return model{
		provider: provider,
		client:   client,
	}
}

func fetchStatus(c StatusClient) tea.Cmd {
	return func() tea.Msg {
		data, err := c.GetStatus()
		return statusMsg{data: data, err: err}
	}
}

func reloadDaemon(c StatusClient) tea.Cmd {
	return func() tea.Msg {
		return reloadMsg{err: c.Reload()}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.client), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Background messages are handled in every mode so polling never stops.
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(fetchStatus(m.client), tick())
	case statusMsg:
		m.status, m.statusErr = msg.data, msg.err
		if msg.err != nil {
			m.status = nil
		}
		return m, nil
	case reloadMsg:
		if msg.err != nil {
			m.setNotice("reload failed: "+msg.err.Error(), true)
		} else {
			m.setNotice("daemon reloaded", false)
		}
		return m, fetchStatus(m.client)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.editing {
			return m, nil
		}
	}

	if m.editing {
		return m.updateEditing(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.reload()
		case "e":
			return m, m.startEditing()
		}
	}
	return m, nil
}

// reload asks the daemon to re-read its config, or reloads the local
// provider when no daemon is running.
func (m *model) reload() tea.Cmd {
	if m.status != nil && m.status.DaemonRunning {
		return reloadDaemon(m.client)
	}
	if m.provider == nil {
		m.setNotice("daemon not running", true)
		return nil
	}
	if err := m.provider.Reload(); err != nil {
		m.setNotice("reload: "+err.Error(), true)
		return nil
	}
	m.setNotice("config reloaded", false)
	return nil
}

func (m *model) startEditing() tea.Cmd {
	if m.provider == nil {
		m.setNotice("no config file available", true)
		return nil
	}
	m.base = m.provider.Snapshot()
	m.settings = SettingsFrom(m.base)
	m.form = NewForm(m.settings, m.base, m.width-4)
	m.editing = true
	m.notice = ""
	return m.form.Init()
}

func (m model) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.stopEditing()
			m.setNotice("edit cancelled", false)
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.applySettings()
		m.stopEditing()
		return m, fetchStatus(m.client)
	case huh.StateAborted:
		m.stopEditing()
		return m, nil
	}
	return m, cmd
}

func (m *model) applySettings() {
	next, err := m.settings.Apply(m.base)
	if err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	if err := m.provider.Update(next); err != nil {
		m.setNotice("save failed: "+err.Error(), true)
		return
	}
	m.setNotice("settings saved to "+m.provider.Path(), false)
}

func (m *model) stopEditing() {
	m.editing = false
	m.form = nil
	m.settings = nil
}

func (m *model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := titleStyle.Render("flurry")
	statusBar := RenderStatusBar(m.status, m.width)
	helpBar := renderHelpBar(m.width, m.editing)

	var content string
	switch {
	case m.editing && m.form != nil:
		content = m.form.View()
	case m.status != nil:
		content = lipgloss.JoinVertical(lipgloss.Left,
			RenderConfig(m.status),
			"",
			RenderBindings(m.status.Bindings),
		)
	default:
		content = m.offlineView()
	}

	notice := ""
	if m.notice != "" {
		if m.noticeErr {
			notice = errorStyle.Render(m.notice)
		} else {
			notice = mutedStyle.Render(m.notice)
		}
	}

	body := lipgloss.NewStyle().Padding(1, 1).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		statusBar,
		body,
		notice,
		helpBar,
	)
}

// offlineView shows the local config when the daemon cannot be reached.
func (m model) offlineView() string {
	if m.provider == nil {
		return mutedStyle.Render("Daemon not running and no config loaded.")
	}
	local := &ipc.StatusData{
		ConfigPath: m.provider.Path(),
		Config:     m.provider.Snapshot(),
	}
	msg := "Daemon not running. Start it with: flurry daemon"
	if m.statusErr != nil {
		msg = "Daemon not running (" + m.statusErr.Error() + "). Start it with: flurry daemon"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		mutedStyle.Render(msg),
		"",
		RenderConfig(local),
	)
}
