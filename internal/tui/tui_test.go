package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxyswitch/internal/controller"
	"proxyswitch/internal/logging"
	"proxyswitch/internal/storage/memory"
	"proxyswitch/internal/sysproxy"
)

type nopProxy struct{}

func (nopProxy) Apply(ctx context.Context, cfg sysproxy.Config) error { return nil }

func newTestModel(t *testing.T) (*Model, *memory.Store) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	ctrl := controller.New(store, nopProxy{}, logging.NewNopLogger())
	return NewModel(Deps{Storage: store, Controller: ctrl}), store
}

func loadedModel(t *testing.T, m *Model, store *memory.Store) *Model {
	t.Helper()
	st, err := store.State(context.Background())
	require.NoError(t, err)
	updated, _ := m.Update(stateLoadedMsg{state: st})
	return updated.(*Model)
}

func TestViewListsProfiles(t *testing.T) {
	m, store := newTestModel(t)
	m = loadedModel(t, m, store)

	view := m.View()
	assert.Contains(t, view, "burp")
	assert.Contains(t, view, "tor")
	assert.Contains(t, view, "custom")
	assert.Contains(t, view, "DIRECT")
	assert.Contains(t, view, "(incomplete)")
}

func TestViewShowsEnabledPill(t *testing.T) {
	m, store := newTestModel(t)
	require.NoError(t, store.SetProxyEnabled(context.Background(), true))
	m = loadedModel(t, m, store)

	assert.Contains(t, m.View(), "PROXY ON")
}

func TestCursorNavigation(t *testing.T) {
	m, store := newTestModel(t)
	m = loadedModel(t, m, store)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = updated.(*Model)
	key, ok := m.cursorKey()
	require.True(t, ok)
	assert.Equal(t, "tor", key)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m = updated.(*Model)
	key, _ = m.cursorKey()
	assert.Equal(t, "burp", key)
}

func TestEditFormShowsProfileFields(t *testing.T) {
	m, store := newTestModel(t)
	m = loadedModel(t, m, store)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	m = updated.(*Model)
	require.True(t, m.editing)
	assert.Equal(t, "burp", m.editKey)

	view := m.View()
	assert.Contains(t, view, "Editing profile 'burp'")
	assert.Contains(t, view, "127.0.0.1")

	// Esc leaves the form without writing anything.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(*Model)
	assert.False(t, m.editing)
}

func TestExternalChangeTriggersReload(t *testing.T) {
	m, store := newTestModel(t)
	m = loadedModel(t, m, store)

	// A committed write from anywhere must schedule a snapshot reload and
	// re-arm the subscription.
	updated, cmd := m.Update(settingsChangedMsg{ok: true})
	m = updated.(*Model)
	require.NotNil(t, cmd)

	require.NoError(t, store.SetActiveProfile(context.Background(), "tor"))
	m = loadedModel(t, m, store)
	assert.Contains(t, m.View(), "● tor")
}
