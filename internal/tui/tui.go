// Package tui is a terminal settings panel for proxyswitch. It never holds
// an authoritative copy of the settings: every committed write (its own,
// another instance's, or the controller's rollback) comes back through the
// store's change stream and triggers a re-render from a fresh snapshot.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"proxyswitch/internal/controller"
	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
)

// Field indices of the edit form.
const (
	fieldName = iota
	fieldHost
	fieldPort
	fieldProtocol
	fieldCount
)

var protocolChoices = []string{models.ProtocolHTTP, models.ProtocolHTTPS, models.ProtocolSOCKS5}

// Deps holds all dependencies injected into the TUI.
type Deps struct {
	Storage    storage.Storage
	Controller *controller.Controller
}

// Model is the root BubbleTea model.
type Model struct {
	store storage.Storage
	ctrl  *controller.Controller

	// Change stream.
	changes <-chan storage.Change
	cancel  func()

	// Snapshot refreshed on every change notification.
	state *models.State

	// Navigation.
	cursor int

	// Edit form.
	editing  bool
	editKey  string
	field    int
	inputs   [fieldCount]textinput.Model
	protocol int

	// Feedback.
	notice    string
	noticeErr bool

	width  int
	height int
}

// NewModel creates the root model and subscribes to the change stream.
func NewModel(deps Deps) *Model {
	changes, cancel := deps.Storage.Subscribe()

	m := &Model{
		store:   deps.Storage,
		ctrl:    deps.Controller,
		changes: changes,
		cancel:  cancel,
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.CharLimit = 64
		ti.Prompt = ""
		m.inputs[i] = ti
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		loadState(m.store),
		waitForChange(m.changes),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateLoadedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.state = msg.state
		if m.cursor >= m.state.Profiles.Len() {
			m.cursor = 0
		}
		return m, nil

	case settingsChangedMsg:
		if !msg.ok {
			return m, tea.Quit
		}
		// Re-read the snapshot; the notification itself carries no
		// authority.
		return m, tea.Batch(loadState(m.store), waitForChange(m.changes))

	case toggleResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else if msg.enabled {
			m.setNotice("proxy enabled", false)
		} else {
			m.setNotice("connection is direct", false)
		}
		return m, loadState(m.store)

	case saveResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.editing = false
		m.setNotice(fmt.Sprintf("saved profile '%s'", msg.key), false)
		return m, loadState(m.store)

	case selectResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else {
			m.setNotice(fmt.Sprintf("active profile: %s", msg.key), false)
		}
		return m, loadState(m.store)

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancel()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.state != nil && m.cursor < m.state.Profiles.Len()-1 {
			m.cursor++
		}

	case "enter":
		if key, ok := m.cursorKey(); ok {
			return m, m.selectProfile(key)
		}

	case "t":
		return m, m.toggle()

	case "e":
		if key, ok := m.cursorKey(); ok {
			m.startEditing(key)
		}
	}
	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		return m, nil

	case "tab", "down":
		m.focusField((m.field + 1) % fieldCount)
		return m, nil

	case "shift+tab", "up":
		m.focusField((m.field + fieldCount - 1) % fieldCount)
		return m, nil

	case "left", "right":
		if m.field == fieldProtocol {
			step := 1
			if msg.String() == "left" {
				step = len(protocolChoices) - 1
			}
			m.protocol = (m.protocol + step) % len(protocolChoices)
			return m, nil
		}

	case "enter":
		return m, m.saveProfile()
	}

	if m.field != fieldProtocol {
		var cmd tea.Cmd
		m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) startEditing(key string) {
	p, ok := m.state.Profiles.Get(key)
	if !ok {
		return
	}
	m.editing = true
	m.editKey = key
	m.inputs[fieldName].SetValue(p.Name)
	m.inputs[fieldHost].SetValue(p.Host)
	m.inputs[fieldPort].SetValue(p.Port)
	m.protocol = 0
	for i, choice := range protocolChoices {
		if choice == p.Protocol {
			m.protocol = i
		}
	}
	m.focusField(fieldHost)
}

func (m *Model) focusField(field int) {
	m.field = field
	for i := range m.inputs {
		if i == field {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) cursorKey() (string, bool) {
	if m.state == nil || m.state.Profiles.Len() == 0 {
		return "", false
	}
	keys := m.state.Profiles.Keys()
	if m.cursor < 0 || m.cursor >= len(keys) {
		return "", false
	}
	return keys[m.cursor], true
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// Commands.

func (m *Model) toggle() tea.Cmd {
	return func() tea.Msg {
		enabled, err := m.ctrl.Toggle(context.Background())
		return toggleResultMsg{enabled: enabled, err: err}
	}
}

func (m *Model) selectProfile(key string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := m.store.SetActiveProfile(ctx, key); err != nil {
			return selectResultMsg{key: key, err: err}
		}
		return selectResultMsg{key: key, err: m.ctrl.Reconcile(ctx)}
	}
}

func (m *Model) saveProfile() tea.Cmd {
	key := m.editKey
	p := models.Profile{
		Name:     strings.TrimSpace(m.inputs[fieldName].Value()),
		Host:     strings.TrimSpace(m.inputs[fieldHost].Value()),
		Port:     strings.TrimSpace(m.inputs[fieldPort].Value()),
		Protocol: protocolChoices[m.protocol],
	}
	if p.Name == "" {
		p.Name = key
	}

	return func() tea.Msg {
		// Validate before writing; saving never flips the enabled flag.
		if err := p.Validate(); err != nil {
			return saveResultMsg{key: key, err: err}
		}
		ctx := context.Background()
		if err := m.store.SaveProfile(ctx, key, p); err != nil {
			return saveResultMsg{key: key, err: err}
		}
		return saveResultMsg{key: key, err: m.ctrl.Reconcile(ctx)}
	}
}

// View.

func (m *Model) View() string {
	if m.state == nil {
		return "Loading..."
	}

	var b strings.Builder

	// Header with status pill.
	pill := directPillStyle.Render("DIRECT")
	if m.state.ProxyEnabled {
		pill = enabledPillStyle.Render("PROXY ON")
	}
	b.WriteString(titleStyle.Render("proxyswitch") + pill + "\n\n")

	if m.editing {
		b.WriteString(m.viewForm())
	} else {
		b.WriteString(m.viewList())
	}

	if m.notice != "" {
		b.WriteString("\n")
		if m.noticeErr {
			b.WriteString(errorStyle.Render("✗ " + m.notice))
		} else {
			b.WriteString(dimStyle.Render("✓ " + m.notice))
		}
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString(footerStyle.Render("\n  tab: next field  •  ←/→: protocol  •  enter: save  •  esc: cancel"))
	} else {
		b.WriteString(footerStyle.Render("\n  enter: activate  •  t: toggle proxy  •  e: edit  •  q: quit"))
	}
	return b.String()
}

func (m *Model) viewList() string {
	var b strings.Builder
	active, _, _ := m.state.Active()

	for i, key := range m.state.Profiles.Keys() {
		p, _ := m.state.Profiles.Get(key)

		marker := "  "
		if key == active {
			marker = "● "
		}
		target := fmt.Sprintf("%s:%s", p.Host, p.Port)
		if !p.IsComplete() {
			target = "(incomplete)"
		}
		row := fmt.Sprintf("%s%-10s %-14s %-8s %s", marker, key, p.Name, p.Protocol, target)

		if i == m.cursor {
			b.WriteString(selectedRowStyle.Render("> " + row))
		} else {
			b.WriteString(normalRowStyle.Render("  " + row))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewForm() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("Editing profile '%s'", m.editKey)) + "\n\n")

	labels := [fieldCount]string{"Name", "Host", "Port", "Protocol"}
	for i := 0; i < fieldCount; i++ {
		cursor := "  "
		if i == m.field {
			cursor = "> "
		}
		b.WriteString(cursor + labelStyle.Render(labels[i]))
		if i == fieldProtocol {
			b.WriteString(protocolChoices[m.protocol])
		} else {
			b.WriteString(m.inputs[i].View())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the TUI and blocks until it exits.
func Run(deps Deps) error {
	model := NewModel(deps)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
