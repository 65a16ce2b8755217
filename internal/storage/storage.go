package storage

import (
	"context"

	"proxyswitch/internal/storage/models"
)

// Change notification keys.
const (
	KeyProfiles      = "profiles"
	KeyActiveProfile = "active_profile"
	KeyProxyEnabled  = "proxy_enabled"
)

// Change describes a single committed write. Old and New hold the string
// form of the value ("true"/"false" for proxy_enabled, the profile key for
// active_profile, the edited profile key for profiles).
type Change struct {
	Key      string
	Old      string
	New      string
	Revision int64
}

// Storage defines the interface for settings persistence. Every committed
// write is delivered, in commit order, to all subscribers: the controller
// and any number of UI instances coordinate solely through this stream.
type Storage interface {
	// State reads profiles, the active profile key, and the enabled flag
	// in a single atomic snapshot.
	State(ctx context.Context) (*models.State, error)

	// SaveProfile inserts or updates one profile. Keys are never removed.
	SaveProfile(ctx context.Context, key string, p models.Profile) error

	// SetActiveProfile records which profile is selected.
	SetActiveProfile(ctx context.Context, key string) error

	// SetProxyEnabled records the enable/disable intent.
	SetProxyEnabled(ctx context.Context, enabled bool) error

	// Revision returns a counter bumped by every committed write. Pollers
	// use it to detect writes from other processes.
	Revision(ctx context.Context) (int64, error)

	// Subscribe registers a change observer. The returned cancel func
	// must be called to release it.
	Subscribe() (<-chan Change, func())

	// Close closes the storage connection.
	Close() error
}
