package controller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxyswitch/internal/controller"
	"proxyswitch/internal/logging"
	"proxyswitch/internal/storage/memory"
	"proxyswitch/internal/storage/models"
	"proxyswitch/internal/sysproxy"
	apperrors "proxyswitch/pkg/errors"
)

// fakeProxy records every Apply call and can be told to reject fixed
// configurations.
type fakeProxy struct {
	mu        sync.Mutex
	applied   []sysproxy.Config
	failFixed bool
}

func (f *fakeProxy) Apply(ctx context.Context, cfg sysproxy.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFixed && cfg.Mode == sysproxy.ModeFixed {
		return errors.New("capability rejected the configuration")
	}
	f.applied = append(f.applied, cfg)
	return nil
}

func (f *fakeProxy) calls() []sysproxy.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sysproxy.Config, len(f.applied))
	copy(out, f.applied)
	return out
}

func (f *fakeProxy) last() (sysproxy.Config, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applied) == 0 {
		return sysproxy.Config{}, false
	}
	return f.applied[len(f.applied)-1], true
}

func newTestController(t *testing.T) (*controller.Controller, *memory.Store, *fakeProxy) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	proxy := &fakeProxy{}
	ctrl := controller.New(store, proxy, logging.NewNopLogger())
	return ctrl, store, proxy
}

func TestEnableAppliesActiveProfile(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Enable(ctx, "burp"))

	last, ok := proxy.last()
	require.True(t, ok)
	assert.Equal(t, sysproxy.Fixed("http", "127.0.0.1", 8080), last)

	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.ProxyEnabled)
	assert.Equal(t, "burp", st.ActiveProfile)

	assert.Equal(t, controller.PhaseEnabled, ctrl.Phase())
	assert.True(t, ctrl.Enabled())
	assert.NoError(t, ctrl.LastError())
}

func TestEnableIsIdempotent(t *testing.T) {
	ctrl, _, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Enable(ctx, "burp"))
	require.NoError(t, ctrl.Enable(ctx, "burp"))

	// The second enable resolves to the identical configuration: no
	// duplicate side effects.
	assert.Len(t, proxy.calls(), 1)
}

func TestEnableRejectsIncompleteProfile(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	err := ctrl.Enable(ctx, "custom")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingHost)

	var profileErr *apperrors.ProfileError
	require.ErrorAs(t, err, &profileErr)
	assert.Equal(t, "custom", profileErr.Key)

	// Nothing was persisted and nothing was applied.
	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.ProxyEnabled)
	assert.Equal(t, "burp", st.ActiveProfile)
	assert.Empty(t, proxy.calls())
	assert.Equal(t, controller.PhaseDisabled, ctrl.Phase())
}

func TestEnableUnknownProfile(t *testing.T) {
	ctrl, _, proxy := newTestController(t)

	err := ctrl.Enable(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
	assert.Empty(t, proxy.calls())
}

func TestSwitchProfileWhileEnabled(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Enable(ctx, "burp"))
	require.NoError(t, store.SetActiveProfile(ctx, "tor"))
	require.NoError(t, ctrl.Reconcile(ctx))

	// Traffic moves straight to the new profile, no disable/enable cycle.
	calls := proxy.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, sysproxy.Fixed("http", "127.0.0.1", 8080), calls[0])
	assert.Equal(t, sysproxy.Fixed("socks5", "127.0.0.1", 9050), calls[1])

	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.ProxyEnabled)
}

func TestDisableRestoresDirect(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Enable(ctx, "burp"))
	require.NoError(t, ctrl.Disable(ctx))

	last, ok := proxy.last()
	require.True(t, ok)
	assert.Equal(t, sysproxy.Direct(), last)

	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.ProxyEnabled)
	assert.Equal(t, controller.PhaseDisabled, ctrl.Phase())
	assert.False(t, ctrl.Enabled())
}

func TestToggle(t *testing.T) {
	ctrl, _, proxy := newTestController(t)
	ctx := context.Background()

	enabled, err := ctrl.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = ctrl.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	calls := proxy.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, sysproxy.ModeFixed, calls[0].Mode)
	assert.Equal(t, sysproxy.ModeDirect, calls[1].Mode)
}

func TestApplyFailureFailsSafe(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	proxy.failFixed = true
	ctx := context.Background()

	err := ctrl.Enable(ctx, "burp")
	require.Error(t, err)

	var applyErr *apperrors.ApplyError
	assert.ErrorAs(t, err, &applyErr)

	// The intent is rolled back and the live path forced direct.
	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.ProxyEnabled)

	last, ok := proxy.last()
	require.True(t, ok)
	assert.Equal(t, sysproxy.Direct(), last)

	assert.Equal(t, controller.PhaseDisabled, ctrl.Phase())
	assert.False(t, ctrl.Enabled())
	assert.Error(t, ctrl.LastError())
}

func TestRollbackDoesNotLoop(t *testing.T) {
	ctrl, _, proxy := newTestController(t)
	proxy.failFixed = true
	ctx := context.Background()

	require.Error(t, ctrl.Enable(ctx, "burp"))
	directApplies := len(proxy.calls())

	// The rollback write lands as just another change notification; the
	// resulting reconciliation must be a no-op, not another clear cycle.
	require.NoError(t, ctrl.Reconcile(ctx))
	assert.Len(t, proxy.calls(), directApplies)
}

func TestIncompleteProfileIsNeverApplied(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	// Force an inconsistent persisted state: enabled with an unusable
	// active profile.
	require.NoError(t, store.SetActiveProfile(ctx, "custom"))
	require.NoError(t, store.SetProxyEnabled(ctx, true))

	err := ctrl.Reconcile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrMissingHost)

	for _, cfg := range proxy.calls() {
		assert.Equal(t, sysproxy.ModeDirect, cfg.Mode)
	}

	st, err := store.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.ProxyEnabled)
}

func TestStaleActiveKeyFallsBack(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, store.SetActiveProfile(ctx, "deleted-key"))
	require.NoError(t, ctrl.Enable(ctx, ""))

	// Falls back to the default profile rather than failing.
	last, ok := proxy.last()
	require.True(t, ok)
	assert.Equal(t, sysproxy.Fixed("http", "127.0.0.1", 8080), last)
}

func TestStartupReassertsWhenEnabled(t *testing.T) {
	ctrl, _, proxy := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Enable(ctx, "tor"))
	before := len(proxy.calls())

	// Host proxy settings may not survive a restart, so an identical
	// persisted state is still re-applied.
	require.NoError(t, ctrl.Startup(ctx))
	calls := proxy.calls()
	require.Len(t, calls, before+1)
	assert.Equal(t, sysproxy.Fixed("socks5", "127.0.0.1", 9050), calls[len(calls)-1])
}

func TestStartupLeavesDisabledAlone(t *testing.T) {
	ctrl, _, proxy := newTestController(t)

	require.NoError(t, ctrl.Startup(context.Background()))
	assert.Empty(t, proxy.calls())
	assert.Equal(t, controller.PhaseDisabled, ctrl.Phase())
}

func TestHTTPSProfileMapsToHTTPScheme(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	p := models.Profile{Name: "Secure", Host: "secure.example", Port: "8443", Protocol: "https"}
	require.NoError(t, store.SaveProfile(ctx, "secure", p))
	require.NoError(t, ctrl.Enable(ctx, "secure"))

	last, ok := proxy.last()
	require.True(t, ok)
	assert.Equal(t, sysproxy.Fixed("http", "secure.example", 8443), last)
}

func TestRunReconcilesOnChanges(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	require.NoError(t, ctrl.Enable(ctx, "burp"))

	// A profile switch observed through the change stream re-points the
	// live configuration without an explicit reconcile call.
	require.NoError(t, store.SetActiveProfile(ctx, "tor"))

	require.Eventually(t, func() bool {
		last, ok := proxy.last()
		return ok && last == sysproxy.Fixed("socks5", "127.0.0.1", 9050)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}
}

func TestStoreWriteFailureAbortsEnable(t *testing.T) {
	ctrl, store, proxy := newTestController(t)
	ctx := context.Background()

	store.FailNext = errors.New("locked")
	err := ctrl.Enable(ctx, "tor")
	require.Error(t, err)

	var storeErr *apperrors.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Empty(t, proxy.calls())
}
