package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/memory"
	"proxyswitch/internal/storage/models"
	apperrors "proxyswitch/pkg/errors"
)

func TestNewSeedsDefaults(t *testing.T) {
	store := memory.New()
	defer store.Close()

	st, err := store.State(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"burp", "tor", "custom"}, st.Profiles.Keys())
	assert.Equal(t, "burp", st.ActiveProfile)
	assert.False(t, st.ProxyEnabled)
}

func TestSaveProfileRoundTrip(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	saved := models.Profile{Name: "Corp Proxy", Host: "proxy.corp.example", Port: "3128", Protocol: "https"}
	require.NoError(t, store.SaveProfile(ctx, "custom", saved))

	st, err := store.State(ctx)
	require.NoError(t, err)
	got, ok := st.Profiles.Get("custom")
	require.True(t, ok)
	assert.Equal(t, saved, got)
}

func TestStateIsASnapshot(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	st, err := store.State(ctx)
	require.NoError(t, err)

	// Mutating the snapshot must not leak back into the store.
	st.Profiles.Put("burp", models.Profile{Name: "mutated"})

	fresh, err := store.State(ctx)
	require.NoError(t, err)
	p, _ := fresh.Profiles.Get("burp")
	assert.Equal(t, "Burp Suite", p.Name)
}

func TestChangeNotifications(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	changes, cancel := store.Subscribe()
	defer cancel()

	require.NoError(t, store.SetProxyEnabled(ctx, true))
	change := <-changes
	assert.Equal(t, storage.KeyProxyEnabled, change.Key)
	assert.Equal(t, "false", change.Old)
	assert.Equal(t, "true", change.New)
	assert.Equal(t, int64(1), change.Revision)

	require.NoError(t, store.SetActiveProfile(ctx, "tor"))
	change = <-changes
	assert.Equal(t, storage.KeyActiveProfile, change.Key)
	assert.Equal(t, "burp", change.Old)
	assert.Equal(t, "tor", change.New)
	assert.Equal(t, int64(2), change.Revision)

	rev, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	store := memory.New()
	defer store.Close()

	first, cancelFirst := store.Subscribe()
	defer cancelFirst()
	second, cancelSecond := store.Subscribe()
	defer cancelSecond()

	require.NoError(t, store.SetProxyEnabled(context.Background(), true))

	a := <-first
	b := <-second
	assert.Equal(t, a, b)
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	store.FailNext = errors.New("disk full")
	err := store.SetProxyEnabled(ctx, true)
	require.Error(t, err)

	var storeErr *apperrors.StoreError
	assert.ErrorAs(t, err, &storeErr)

	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.ProxyEnabled)

	rev, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)
}

func TestSaveProfileRejectsEmptyKey(t *testing.T) {
	store := memory.New()
	defer store.Close()

	err := store.SaveProfile(context.Background(), "", models.Profile{})
	assert.ErrorIs(t, err, apperrors.ErrProfileKeyEmpty)
}
