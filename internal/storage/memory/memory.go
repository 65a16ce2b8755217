// Package memory provides an in-memory Storage used by tests and one-shot
// commands that do not need durability.
package memory

import (
	"context"
	"strconv"
	"sync"

	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
	apperrors "proxyswitch/pkg/errors"
)

// Store implements storage.Storage backed by process memory.
type Store struct {
	mu       sync.Mutex
	profiles *models.ProfileSet
	active   string
	enabled  bool
	revision int64
	notifier storage.Notifier

	// FailNext, when set, makes the next write fail with the given error.
	FailNext error
}

// New returns a store seeded the same way a first install is: defaults only
// for what is absent, which for a fresh store is everything.
func New() *Store {
	return &Store{
		profiles: models.DefaultProfiles(),
		active:   models.FallbackProfileKey,
	}
}

// NewEmpty returns a store with no profiles at all.
func NewEmpty() *Store {
	return &Store{profiles: models.NewProfileSet()}
}

// State returns an atomic snapshot.
func (s *Store) State(ctx context.Context) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &models.State{
		Profiles:      s.profiles.Clone(),
		ActiveProfile: s.active,
		ProxyEnabled:  s.enabled,
	}, nil
}

// SaveProfile inserts or updates one profile.
func (s *Store) SaveProfile(ctx context.Context, key string, p models.Profile) error {
	if key == "" {
		return apperrors.ErrProfileKeyEmpty
	}

	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.profiles.Put(key, p)
	s.revision++
	change := storage.Change{Key: storage.KeyProfiles, Old: key, New: key, Revision: s.revision}
	s.mu.Unlock()

	s.notifier.Publish(change)
	return nil
}

// SetActiveProfile records which profile is selected.
func (s *Store) SetActiveProfile(ctx context.Context, key string) error {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.active
	s.active = key
	s.revision++
	change := storage.Change{Key: storage.KeyActiveProfile, Old: old, New: key, Revision: s.revision}
	s.mu.Unlock()

	s.notifier.Publish(change)
	return nil
}

// SetProxyEnabled records the enable/disable intent.
func (s *Store) SetProxyEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.enabled
	s.enabled = enabled
	s.revision++
	change := storage.Change{
		Key:      storage.KeyProxyEnabled,
		Old:      strconv.FormatBool(old),
		New:      strconv.FormatBool(enabled),
		Revision: s.revision,
	}
	s.mu.Unlock()

	s.notifier.Publish(change)
	return nil
}

// Revision returns the write counter.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision, nil
}

// Subscribe registers a change observer.
func (s *Store) Subscribe() (<-chan storage.Change, func()) {
	return s.notifier.Subscribe()
}

// Close closes all subscriber channels.
func (s *Store) Close() error {
	s.notifier.Close()
	return nil
}

func (s *Store) takeFailure() error {
	if s.FailNext == nil {
		return nil
	}
	err := &apperrors.StoreError{Op: "write", Err: s.FailNext}
	s.FailNext = nil
	return err
}
