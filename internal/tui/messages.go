package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
)

// Data loading messages.

type stateLoadedMsg struct {
	state *models.State
	err   error
}

// settingsChangedMsg arrives whenever any observer commits a write: another
// UI instance, a CLI invocation in this process, or the controller's own
// rollback.
type settingsChangedMsg struct {
	change storage.Change
	ok     bool
}

// Action result messages.

type toggleResultMsg struct {
	enabled bool
	err     error
}

type saveResultMsg struct {
	key string
	err error
}

type selectResultMsg struct {
	key string
	err error
}

// loadState reads a fresh snapshot from the store.
func loadState(store storage.Storage) tea.Cmd {
	return func() tea.Msg {
		st, err := store.State(context.Background())
		return stateLoadedMsg{state: st, err: err}
	}
}

// waitForChange blocks on the subscription channel and re-arms after every
// delivery.
func waitForChange(changes <-chan storage.Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-changes
		return settingsChangedMsg{change: change, ok: ok}
	}
}
