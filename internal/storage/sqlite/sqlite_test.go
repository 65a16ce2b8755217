package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
	"proxyswitch/internal/storage/sqlite"
)

func openTestDB(t *testing.T) (*sqlite.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

func TestFirstOpenSeedsDefaults(t *testing.T) {
	db, _ := openTestDB(t)

	st, err := db.State(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"burp", "tor", "custom"}, st.Profiles.Keys())
	assert.Equal(t, "burp", st.ActiveProfile)
	assert.False(t, st.ProxyEnabled)

	burp, ok := st.Profiles.Get("burp")
	require.True(t, ok)
	assert.Equal(t, models.Profile{Name: "Burp Suite", Host: "127.0.0.1", Port: "8080", Protocol: "http"}, burp)
}

func TestReopenNeverOverwritesUserState(t *testing.T) {
	db, dbPath := openTestDB(t)
	ctx := context.Background()

	edited := models.Profile{Name: "Corp", Host: "proxy.corp.example", Port: "3128", Protocol: "https"}
	require.NoError(t, db.SaveProfile(ctx, "custom", edited))
	require.NoError(t, db.SetActiveProfile(ctx, "custom"))
	require.NoError(t, db.SetProxyEnabled(ctx, true))
	require.NoError(t, db.Close())

	// Reopening runs the seeding again; it must not clobber anything.
	reopened, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	st, err := reopened.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "custom", st.ActiveProfile)
	assert.True(t, st.ProxyEnabled)

	got, ok := st.Profiles.Get("custom")
	require.True(t, ok)
	assert.Equal(t, edited, got)
}

func TestSaveProfileRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	saved := models.Profile{Name: "Upstream", Host: "10.1.2.3", Port: "1080", Protocol: "socks5"}
	require.NoError(t, db.SaveProfile(ctx, "upstream", saved))

	st, err := db.State(ctx)
	require.NoError(t, err)
	got, ok := st.Profiles.Get("upstream")
	require.True(t, ok)
	assert.Equal(t, saved, got)

	// New keys land after the defaults, preserving insertion order.
	assert.Equal(t, []string{"burp", "tor", "custom", "upstream"}, st.Profiles.Keys())
}

func TestUpdateKeepsPosition(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	tor, _ := mustState(t, db).Profiles.Get("tor")
	tor.Port = "9150"
	require.NoError(t, db.SaveProfile(ctx, "tor", tor))

	st := mustState(t, db)
	assert.Equal(t, []string{"burp", "tor", "custom"}, st.Profiles.Keys())
	got, _ := st.Profiles.Get("tor")
	assert.Equal(t, "9150", got.Port)
}

func TestWritesNotifyAndBumpRevision(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	changes, cancel := db.Subscribe()
	defer cancel()

	before, err := db.Revision(ctx)
	require.NoError(t, err)

	require.NoError(t, db.SetProxyEnabled(ctx, true))
	change := <-changes
	assert.Equal(t, storage.KeyProxyEnabled, change.Key)
	assert.Equal(t, "false", change.Old)
	assert.Equal(t, "true", change.New)
	assert.Equal(t, before+1, change.Revision)

	require.NoError(t, db.SetActiveProfile(ctx, "tor"))
	change = <-changes
	assert.Equal(t, storage.KeyActiveProfile, change.Key)
	assert.Equal(t, "burp", change.Old)
	assert.Equal(t, "tor", change.New)

	after, err := db.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)
}

func mustState(t *testing.T, db *sqlite.DB) *models.State {
	t.Helper()
	st, err := db.State(context.Background())
	require.NoError(t, err)
	return st
}
