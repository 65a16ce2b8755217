// Package controller reconciles the live system proxy configuration with the
// persisted intent. It owns the enable/disable state machine; all
// coordination with settings UIs happens through the storage change stream,
// never through direct calls.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
	"proxyswitch/internal/sysproxy"
	apperrors "proxyswitch/pkg/errors"
)

// Phase is the controller's position in the enable/disable state machine.
type Phase string

const (
	PhaseDisabled  Phase = "disabled"
	PhaseEnabling  Phase = "enabling"
	PhaseEnabled   Phase = "enabled"
	PhaseDisabling Phase = "disabling"
	PhaseError     Phase = "error"
)

// Controller drives the host proxy capability to match the persisted state.
type Controller struct {
	store  storage.Storage
	proxy  sysproxy.Controller
	logger *slog.Logger

	// mu serializes reconciliations: only one can be in flight.
	mu        sync.Mutex
	phase     Phase
	lastErr   error
	applied   *sysproxy.Config // last successfully applied config, nil if unknown
	confirmed bool             // last successfully confirmed enabled value
}

// New creates a controller in the Disabled phase.
func New(store storage.Storage, proxy sysproxy.Controller, logger *slog.Logger) *Controller {
	return &Controller{
		store:  store,
		proxy:  proxy,
		logger: logger,
		phase:  PhaseDisabled,
	}
}

// Phase returns the current state machine phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Enabled reflects the last successfully confirmed enabled value, never the
// transient enabling/disabling phases. Status badges render from this.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

// LastError returns the most recent apply or validation failure, cleared by
// the next successful reconciliation.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Enable validates the profile under key (or the current active profile when
// key is empty), persists the intent, and reconciles. A validation failure
// leaves the persisted enabled flag untouched.
func (c *Controller) Enable(ctx context.Context, key string) error {
	st, err := c.store.State(ctx)
	if err != nil {
		return err
	}

	if key == "" {
		active, _, ok := st.Active()
		if !ok {
			return apperrors.ErrProfileNotFound
		}
		key = active
	}

	p, ok := st.Profiles.Get(key)
	if !ok {
		return &apperrors.ProfileError{Key: key, Err: apperrors.ErrProfileNotFound}
	}
	if err := p.Validate(); err != nil {
		return &apperrors.ProfileError{Key: key, Err: err}
	}

	if st.ActiveProfile != key {
		if err := c.store.SetActiveProfile(ctx, key); err != nil {
			return err
		}
	}
	if !st.ProxyEnabled {
		if err := c.store.SetProxyEnabled(ctx, true); err != nil {
			return err
		}
	}

	return c.Reconcile(ctx)
}

// Disable persists the disable intent and reconciles back to a direct
// connection.
func (c *Controller) Disable(ctx context.Context) error {
	st, err := c.store.State(ctx)
	if err != nil {
		return err
	}
	if st.ProxyEnabled {
		if err := c.store.SetProxyEnabled(ctx, false); err != nil {
			return err
		}
	}
	return c.Reconcile(ctx)
}

// Toggle flips the enabled flag and returns the new value.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	st, err := c.store.State(ctx)
	if err != nil {
		return false, err
	}
	if st.ProxyEnabled {
		return false, c.Disable(ctx)
	}
	return true, c.Enable(ctx, "")
}

// Startup re-asserts the persisted intent after a process restart. Host
// proxy settings do not necessarily survive a restart, so an enabled state
// is re-applied even though nothing changed in the store. A disabled state
// is left alone.
func (c *Controller) Startup(ctx context.Context) error {
	st, err := c.store.State(ctx)
	if err != nil {
		return err
	}
	if !st.ProxyEnabled {
		c.mu.Lock()
		c.phase = PhaseDisabled
		c.confirmed = false
		c.mu.Unlock()
		return nil
	}
	return c.Reassert(ctx)
}

// Reassert forgets the last applied configuration and reconciles, forcing a
// fresh apply. Used on startup and by the periodic drift-repair job.
func (c *Controller) Reassert(ctx context.Context) error {
	c.mu.Lock()
	c.applied = nil
	c.mu.Unlock()
	return c.Reconcile(ctx)
}

// Reconcile makes the live proxy configuration match the persisted state.
// It is idempotent: re-applying an identical resolved configuration is a
// no-op with no side effects.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.store.State(ctx)
	if err != nil {
		c.logger.Error("reconcile aborted", "error", err)
		return err
	}

	desired, resolveErr := resolve(st)
	if resolveErr != nil {
		// Enabled with an incomplete profile: never apply it. Roll the
		// persisted intent back and fall through to a direct connection.
		c.logger.Warn("active profile is not applicable, falling back to direct",
			"error", resolveErr)
		if err := c.store.SetProxyEnabled(ctx, false); err != nil {
			return err
		}
		desired = sysproxy.Direct()
	}

	if c.applied != nil && *c.applied == desired {
		c.settle(desired)
		c.lastErr = resolveErr
		return resolveErr
	}

	if desired.Mode == sysproxy.ModeFixed {
		c.phase = PhaseEnabling
	} else if c.confirmed {
		c.phase = PhaseDisabling
	}

	if err := c.proxy.Apply(ctx, desired); err != nil {
		return c.failSafe(ctx, desired, err)
	}

	c.applied = &desired
	c.settle(desired)
	c.lastErr = resolveErr

	c.logger.Info("proxy configuration applied", "config", desired.String())
	return resolveErr
}

// Run consumes the change stream until ctx is done. Only one reconciliation
// is in flight at a time; notifications arriving meanwhile are coalesced so
// the newest persisted state supersedes, never queues behind, the old.
func (c *Controller) Run(ctx context.Context) error {
	changes, cancel := c.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			change = drain(changes, change)
			c.logger.Debug("persisted state changed",
				"key", change.Key, "old", change.Old, "new", change.New)
			if err := c.Reconcile(ctx); err != nil {
				c.logger.Error("reconciliation failed", "error", err)
			}
		}
	}
}

// resolve derives the desired live configuration from a snapshot.
func resolve(st *models.State) (sysproxy.Config, error) {
	if !st.ProxyEnabled {
		return sysproxy.Direct(), nil
	}

	key, p, ok := st.Active()
	if !ok {
		return sysproxy.Direct(), apperrors.ErrProfileNotFound
	}
	if err := p.Validate(); err != nil {
		return sysproxy.Direct(), &apperrors.ProfileError{Key: key, Err: err}
	}

	port, err := p.PortNumber()
	if err != nil {
		return sysproxy.Direct(), &apperrors.ProfileError{Key: key, Err: apperrors.ErrInvalidPort}
	}
	return sysproxy.Fixed(p.Scheme(), p.Host, port), nil
}

// failSafe handles an apply failure. The live configuration must never be
// left partially applied or unknown: the persisted intent is rolled back and
// the connection forced direct. Called with mu held.
func (c *Controller) failSafe(ctx context.Context, desired sysproxy.Config, cause error) error {
	applyErr := &apperrors.ApplyError{Target: desired.String(), Err: cause}
	c.phase = PhaseError
	c.lastErr = applyErr
	c.applied = nil
	c.logger.Error("apply failed, falling back to direct connection", "error", applyErr)

	if desired.Mode == sysproxy.ModeFixed {
		if err := c.store.SetProxyEnabled(ctx, false); err != nil {
			c.logger.Error("rollback write failed", "error", err)
		}
	}

	direct := sysproxy.Direct()
	if err := c.proxy.Apply(ctx, direct); err == nil {
		c.applied = &direct
	}

	c.confirmed = false
	c.phase = PhaseDisabled
	return applyErr
}

// settle records a confirmed configuration. Called with mu held.
func (c *Controller) settle(cfg sysproxy.Config) {
	if cfg.Mode == sysproxy.ModeFixed {
		c.phase = PhaseEnabled
		c.confirmed = true
	} else {
		c.phase = PhaseDisabled
		c.confirmed = false
	}
}

// drain empties pending notifications and returns the newest one.
func drain(changes <-chan storage.Change, latest storage.Change) storage.Change {
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return latest
			}
			latest = change
		default:
			return latest
		}
	}
}
