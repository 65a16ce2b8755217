package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"proxyswitch/internal/controller"
	"proxyswitch/internal/logging"
	"proxyswitch/internal/paths"
	"proxyswitch/internal/storage"
	"proxyswitch/internal/storage/sqlite"
	"proxyswitch/internal/sysproxy"
)

// App represents the application context
type App struct {
	Storage    storage.Storage
	Proxy      sysproxy.Controller
	Controller *controller.Controller
	Logger     *slog.Logger
	Config     *Config
}

// Config represents application configuration
type Config struct {
	DBPath string
}

// Options tune application construction.
type Options struct {
	DBPath  string // empty = default under the user's data dir
	Verbose bool
}

// New creates a new application instance. Opening the settings database also
// seeds any missing defaults, so a first run comes up with the stock
// profiles and the proxy disabled.
func New(opts Options) (*App, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dataDir, err := paths.DataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "proxyswitch.db")
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	proxy, err := sysproxy.New()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize system proxy controller: %w", err)
	}

	logger := logging.NewLogger(opts.Verbose)

	return &App{
		Storage:    store,
		Proxy:      proxy,
		Controller: controller.New(store, proxy, logger),
		Logger:     logger,
		Config: &Config{
			DBPath: dbPath,
		},
	}, nil
}

// Close closes the application and releases resources
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
