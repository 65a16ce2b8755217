package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/models"
	apperrors "proxyswitch/pkg/errors"
)

// DB implements the Storage interface using SQLite
type DB struct {
	db       *sql.DB
	notifier storage.Notifier
}

// New creates a new SQLite storage instance
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &DB{db: db}

	// Run migrations
	if err := runMigrations(store); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	d.notifier.Close()
	return d.db.Close()
}

// Subscribe registers a change observer.
func (d *DB) Subscribe() (<-chan storage.Change, func()) {
	return d.notifier.Subscribe()
}

// State reads the full persisted snapshot in one transaction.
func (d *DB) State(ctx context.Context) (*models.State, error) {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, &apperrors.StoreError{Op: "read", Err: err}
	}
	defer tx.Rollback()

	profiles, err := loadProfiles(ctx, tx)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "read", Err: err}
	}

	active, err := getSetting(ctx, tx, "active_profile")
	if err != nil {
		return nil, &apperrors.StoreError{Op: "read", Err: err}
	}

	enabledStr, err := getSetting(ctx, tx, "proxy_enabled")
	if err != nil {
		return nil, &apperrors.StoreError{Op: "read", Err: err}
	}

	return &models.State{
		Profiles:      profiles,
		ActiveProfile: active,
		ProxyEnabled:  enabledStr == "true",
	}, nil
}

// SaveProfile inserts or updates one profile, preserving its position.
func (d *DB) SaveProfile(ctx context.Context, key string, p models.Profile) error {
	if key == "" {
		return apperrors.ErrProfileKeyEmpty
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}
	defer tx.Rollback()

	query := `
		INSERT INTO profiles (key, name, host, port, protocol, position)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM profiles))
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			host = excluded.host,
			port = excluded.port,
			protocol = excluded.protocol
	`
	if _, err := tx.ExecContext(ctx, query, key, p.Name, p.Host, p.Port, p.Protocol); err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	rev, err := bumpRevision(ctx, tx)
	if err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	d.notifier.Publish(storage.Change{Key: storage.KeyProfiles, Old: key, New: key, Revision: rev})
	return nil
}

// SetActiveProfile records which profile is selected.
func (d *DB) SetActiveProfile(ctx context.Context, key string) error {
	return d.setSetting(ctx, "active_profile", key, storage.KeyActiveProfile)
}

// SetProxyEnabled records the enable/disable intent.
func (d *DB) SetProxyEnabled(ctx context.Context, enabled bool) error {
	return d.setSetting(ctx, "proxy_enabled", strconv.FormatBool(enabled), storage.KeyProxyEnabled)
}

// Revision returns the write counter.
func (d *DB) Revision(ctx context.Context) (int64, error) {
	value, err := getSetting(ctx, d.db, "state_rev")
	if err != nil {
		return 0, &apperrors.StoreError{Op: "read", Err: err}
	}
	rev, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &apperrors.StoreError{Op: "read", Err: err}
	}
	return rev, nil
}

func (d *DB) setSetting(ctx context.Context, key, value, changeKey string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}
	defer tx.Rollback()

	old, err := getSetting(ctx, tx, key)
	if err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	rev, err := bumpRevision(ctx, tx)
	if err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &apperrors.StoreError{Op: "write", Err: err}
	}

	d.notifier.Publish(storage.Change{Key: changeKey, Old: old, New: value, Revision: rev})
	return nil
}

// querier is the common interface between *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func loadProfiles(ctx context.Context, q querier) (*models.ProfileSet, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key, name, host, port, protocol FROM profiles ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := models.NewProfileSet()
	for rows.Next() {
		var key string
		var p models.Profile
		if err := rows.Scan(&key, &p.Name, &p.Host, &p.Port, &p.Protocol); err != nil {
			return nil, err
		}
		set.Put(key, p)
	}
	return set, rows.Err()
}

func getSetting(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func bumpRevision(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`UPDATE settings SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT) WHERE key = 'state_rev'`,
	); err != nil {
		return 0, err
	}

	value, err := getSetting(ctx, tx, "state_rev")
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}
