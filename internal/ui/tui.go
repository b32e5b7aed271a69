// Package ui is the bubbletea terminal front end. It only reads state
// snapshots and calls the controller; it never changes state on its own.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatdev/internal/app"
	"chatdev/internal/chat"
	"chatdev/internal/config"
	"chatdev/internal/highlight"
	"chatdev/internal/preview"
	"chatdev/internal/session"
	"chatdev/internal/state"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// requestTimeout bounds every REST call started from the TUI.
const requestTimeout = 60 * time.Second

// chromeHeight is the space taken by header, input, status bar and help.
const chromeHeight = 10

// copyText writes to the system clipboard; replaced in tests.
var copyText = clipboard.WriteAll

// Model is the TUI model.
type Model struct {
	ctrl   Controller
	cfg    config.UIConfig
	styles *Styles

	mode   Mode
	state  state.State
	width  int
	height int

	project  textinput.Model
	task     textarea.Model
	keyInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	renderer    *ChatRenderer
	highlighter *highlight.Highlighter

	sessionCursor int
	modelCursor   int
	models        []modelOption

	files     []session.File
	fileIndex int
	changes   map[string]preview.Change
	showPatch bool

	toast string
}

// NewModel creates the TUI model for ctrl.
func NewModel(ctrl Controller, cfg config.UIConfig) Model {
	styles := DefaultStyles()

	project := textinput.New()
	project.Placeholder = "Project name"
	project.Prompt = ""
	project.CharLimit = 64

	task := textarea.New()
	task.Placeholder = "Describe the software you want built..."
	task.ShowLineNumbers = false
	task.SetHeight(3)
	task.Focus()

	keyInput := textinput.New()
	keyInput.Placeholder = "sk-..."
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		ctrl:        ctrl,
		cfg:         cfg,
		styles:      styles,
		state:       ctrl.Snapshot(),
		width:       80,
		height:      24,
		project:     project,
		task:        task,
		keyInput:    keyInput,
		viewport:    viewport.New(80, 24-chromeHeight),
		spinner:     sp,
		renderer:    NewChatRenderer(styles, cfg.MarkdownStyle),
		highlighter: highlight.New(cfg.HighlightStyle),
		models:      modelOptions(),
		changes:     map[string]preview.Change{},
	}
}

// Init starts the spinner and loads the session list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.refreshSessionsCmd())
}

// Mode returns the screen being shown.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles TUI events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshView()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case StateMsg:
		m.state = msg.State
		if m.sessionCursor >= m.state.Sessions.Len() {
			m.sessionCursor = max(0, m.state.Sessions.Len()-1)
		}
		m.refreshView()

	case FinishedMsg:
		m.toast = "Generation finished"
		if m.cfg.PreviewOnComplete && msg.SessionID == m.state.CurrentID {
			cmds = append(cmds, m.refreshPreviewCmd())
		}

	case submitDoneMsg:
		if msg.err != nil {
			m.toast = app.Describe(msg.err)
		}

	case sessionsMsg:
		if msg.err != nil {
			m.toast = "Failed to load sessions: " + app.Describe(msg.err)
		}

	case deleteDoneMsg:
		if msg.err != nil {
			m.toast = "Failed to delete session: " + app.Describe(msg.err)
		} else {
			m.toast = "Deleted " + msg.id
		}

	case previewMsg:
		m.applyPreview(msg)

	case healthMsg:
		if msg.err != nil {
			m.toast = "Service unreachable: " + app.Describe(msg.err)
		} else {
			m.toast = "Service " + msg.status
		}

	case toastMsg:
		m.toast = string(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-chromeHeight)
	m.task.SetWidth(max(20, m.width-2))
	m.project.Width = max(10, m.width-20)
	m.renderer.SetWidth(m.width)
}

// refreshView updates the viewport for the current mode.
func (m *Model) refreshView() {
	switch m.mode {
	case ModeChat:
		atBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.renderer.Render(m.state.Chat.Entries()))
		if atBottom || m.state.Generating {
			m.viewport.GotoBottom()
		}
	case ModePreview:
		m.viewport.SetContent(m.renderPreview())
	}
}

func (m *Model) setMode(mode Mode) {
	m.mode = mode
	m.toast = ""
	switch mode {
	case ModeChat:
		m.keyInput.Blur()
		m.focusTask()
	case ModeAPIKey:
		m.task.Blur()
		m.project.Blur()
		m.keyInput.SetValue("")
		m.keyInput.Focus()
	case ModeModel:
		for i, o := range m.models {
			if o.Selection == m.state.Model {
				m.modelCursor = i
			}
		}
	}
	m.refreshView()
	m.viewport.GotoTop()
	if mode == ModeChat {
		m.viewport.GotoBottom()
	}
}

func (m *Model) focusTask() {
	m.project.Blur()
	m.task.Focus()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case ModeSessions:
		return m.handleSessionKeys(msg)
	case ModePreview:
		return m.handlePreviewKeys(msg)
	case ModeAPIKey:
		return m.handleAPIKeyKeys(msg)
	case ModeModel:
		return m.handleModelKeys(msg)
	default:
		return m.handleChatKeys(msg)
	}
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlS:
		m.setMode(ModeSessions)
		return m.refreshSessionsCmd()
	case tea.KeyCtrlF:
		m.setMode(ModePreview)
		return m.refreshPreviewCmd()
	case tea.KeyCtrlK:
		m.setMode(ModeAPIKey)
		return nil
	case tea.KeyCtrlO:
		m.setMode(ModeModel)
		return nil
	case tea.KeyCtrlT:
		return m.healthCmd()
	case tea.KeyCtrlY:
		return m.copyLastMessage()
	case tea.KeyTab:
		if m.project.Focused() {
			m.focusTask()
		} else {
			m.task.Blur()
			m.project.Focus()
		}
		return nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case tea.KeyEnter:
		if msg.Alt {
			break
		}
		return m.submit()
	}

	var cmd tea.Cmd
	if m.project.Focused() {
		m.project, cmd = m.project.Update(msg)
	} else {
		m.task, cmd = m.task.Update(msg)
	}
	return cmd
}

func (m *Model) submit() tea.Cmd {
	task := strings.TrimSpace(m.task.Value())
	if task == "" {
		return nil
	}
	if m.state.Generating {
		m.toast = "Generation already running"
		return nil
	}
	project := strings.TrimSpace(m.project.Value())
	m.task.Reset()
	m.toast = ""

	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := ctrl.SubmitTask(ctx, task, project)
		return submitDoneMsg{err: err}
	}
}

func (m *Model) copyLastMessage() tea.Cmd {
	entries := m.state.Chat.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == chat.KindAgent {
			if err := copyText(entries[i].Content); err != nil {
				m.toast = "Copy failed: " + err.Error()
			} else {
				m.toast = "Copied message from " + entries[i].Role
			}
			return nil
		}
	}
	m.toast = "No agent message to copy"
	return nil
}

func (m *Model) handleSessionKeys(msg tea.KeyMsg) tea.Cmd {
	items := m.state.Sessions.Items()

	switch msg.String() {
	case "esc":
		m.setMode(ModeChat)
	case "up", "k":
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
	case "down", "j":
		if m.sessionCursor < len(items)-1 {
			m.sessionCursor++
		}
	case "r":
		return m.refreshSessionsCmd()
	case "d":
		if len(items) == 0 {
			return nil
		}
		id := items[m.sessionCursor].ID
		ctrl := m.ctrl
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return deleteDoneMsg{id: id, err: ctrl.DeleteSession(ctx, id)}
		}
	case "enter":
		if len(items) == 0 {
			return nil
		}
		if err := m.ctrl.SelectSession(items[m.sessionCursor].ID); err != nil {
			m.toast = err.Error()
			return nil
		}
		m.state = m.ctrl.Snapshot()
		m.files = nil
		m.fileIndex = 0
		m.changes = map[string]preview.Change{}
		m.setMode(ModePreview)
		return m.refreshPreviewCmd()
	}
	return nil
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.setMode(ModeChat)
		return nil
	case "left", "h":
		if m.fileIndex > 0 {
			m.fileIndex--
			m.refreshView()
			m.viewport.GotoTop()
		}
		return nil
	case "right", "l":
		if m.fileIndex < len(m.files)-1 {
			m.fileIndex++
			m.refreshView()
			m.viewport.GotoTop()
		}
		return nil
	case "r":
		return m.refreshPreviewCmd()
	case "p":
		m.showPatch = !m.showPatch
		m.refreshView()
		m.viewport.GotoTop()
		return nil
	case "c":
		if f, ok := m.currentFile(); ok {
			if err := copyText(f.Content); err != nil {
				m.toast = "Copy failed: " + err.Error()
			} else {
				m.toast = "Copied " + f.Path
			}
		}
		return nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *Model) handleAPIKeyKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.setMode(ModeChat)
		return nil
	case tea.KeyEnter:
		provider := m.state.Model.Provider
		m.ctrl.SetCredential(provider, strings.TrimSpace(m.keyInput.Value()))
		m.state = m.ctrl.Snapshot()
		m.setMode(ModeChat)
		if m.state.Credential(provider) == "" {
			m.toast = "Removed " + providerLabel(provider) + " API key"
		} else {
			m.toast = "Saved " + providerLabel(provider) + " API key"
		}
		return nil
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return cmd
}

func (m *Model) handleModelKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.setMode(ModeChat)
	case "up", "k":
		if m.modelCursor > 0 {
			m.modelCursor--
		}
	case "down", "j":
		if m.modelCursor < len(m.models)-1 {
			m.modelCursor++
		}
	case "enter":
		sel := m.models[m.modelCursor].Selection
		if err := m.ctrl.SetModel(sel); err != nil {
			m.toast = err.Error()
			return nil
		}
		m.state = m.ctrl.Snapshot()
		m.setMode(ModeChat)
		m.toast = "Model set to " + sel.String()
	}
	return nil
}

func (m Model) refreshSessionsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := ctrl.RefreshSessions(ctx)
		return sessionsMsg{err: err}
	}
}

func (m Model) refreshPreviewCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		changes, err := ctrl.RefreshPreview(ctx)
		return previewMsg{changes: changes, err: err}
	}
}

func (m Model) healthCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		h, err := ctrl.Health(ctx)
		return healthMsg{status: h.Status, err: err}
	}
}

func (m *Model) applyPreview(msg previewMsg) {
	switch {
	case errors.Is(msg.err, app.ErrStale):
		return
	case errors.Is(msg.err, app.ErrNoSession):
		m.toast = "Select a session to see its files"
		return
	case msg.err != nil:
		m.toast = "Failed to load files: " + app.Describe(msg.err)
		return
	}

	var selected string
	if f, ok := m.currentFile(); ok {
		selected = f.Path
	}

	m.files = m.ctrl.Preview().Files()
	m.changes = make(map[string]preview.Change, len(msg.changes))
	for _, c := range msg.changes {
		m.changes[c.Path] = c
	}

	m.fileIndex = 0
	if selected == "" {
		if entry, ok := preview.EntryPoint(m.files); ok {
			selected = entry.Path
		}
	}
	for i, f := range m.files {
		if f.Path == selected {
			m.fileIndex = i
		}
	}
	if len(msg.changes) > 0 {
		m.toast = fmt.Sprintf("%d file(s) changed", len(msg.changes))
	}
	m.refreshView()
}

func (m Model) currentFile() (session.File, bool) {
	if m.fileIndex < 0 || m.fileIndex >= len(m.files) {
		return session.File{}, false
	}
	return m.files[m.fileIndex], true
}

// View renders the TUI.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Header.Render("ChatDev"))
	if cur, ok := m.state.Current(); ok {
		b.WriteString(s.Dim.Render(" · " + cur.ProjectName + " · " + cur.ID))
	}
	b.WriteString("\n")

	switch m.mode {
	case ModeSessions:
		b.WriteString(m.renderSessions())
	case ModeModel:
		b.WriteString(m.renderModels())
	case ModeAPIKey:
		b.WriteString(m.renderAPIKey())
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if m.mode == ModeChat {
		b.WriteString(s.InputLabel.Render("Project ") + m.project.View() + "\n")
		b.WriteString(m.task.View() + "\n")
	}

	b.WriteString(m.renderStatusBar() + "\n")
	if m.toast != "" {
		b.WriteString(s.Toast.Render(m.toast) + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderSessions() string {
	s := m.styles
	items := m.state.Sessions.Items()
	if len(items) == 0 {
		return s.Dim.Render("No sessions yet. Press esc and describe a project.")
	}

	var lines []string
	lines = append(lines, s.ModalTitle.Render(fmt.Sprintf("Sessions (%d)", len(items))))
	for i, sess := range items {
		line := fmt.Sprintf("%-24s %-10s %-14s %s", truncate(sess.ProjectName, 24), sess.Status, sess.ModelType, sess.CreatedAt)
		if sess.ID == m.state.CurrentID {
			line += " ●"
		}
		if i == m.sessionCursor {
			lines = append(lines, s.Selected.Render("› "+line))
		} else {
			lines = append(lines, s.Normal.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderModels() string {
	s := m.styles
	lines := []string{s.ModalTitle.Render("Select model")}
	for i, o := range m.models {
		label := o.Label
		if o.Selection == m.state.Model {
			label += " (current)"
		}
		if i == m.modelCursor {
			lines = append(lines, s.Selected.Render("› "+label))
		} else {
			lines = append(lines, s.Normal.Render("  "+label))
		}
	}
	return s.ModalBorder.Render(strings.Join(lines, "\n"))
}

func (m Model) renderAPIKey() string {
	s := m.styles
	provider := m.state.Model.Provider
	body := s.ModalTitle.Render(providerLabel(provider)+" API key") + "\n" +
		m.keyInput.View() + "\n" +
		s.Dim.Render("Stored locally and sent only when creating a session.")
	return s.ModalBorder.Render(body)
}

func providerLabel(id string) string {
	if p, ok := config.LookupProvider(id); ok {
		return p.Name
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
