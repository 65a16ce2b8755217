package sqlite

const schema = `
-- Named proxy profiles
CREATE TABLE IF NOT EXISTS profiles (
    key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    host TEXT NOT NULL DEFAULT '',
    port TEXT NOT NULL DEFAULT '',
    protocol TEXT NOT NULL DEFAULT 'http',
    position INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Application settings
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_profiles_position ON profiles(position);

-- Triggers for updated_at
CREATE TRIGGER IF NOT EXISTS update_profiles_timestamp AFTER UPDATE ON profiles
BEGIN
    UPDATE profiles SET updated_at = CURRENT_TIMESTAMP WHERE key = NEW.key;
END;

CREATE TRIGGER IF NOT EXISTS update_settings_timestamp AFTER UPDATE ON settings
BEGIN
    UPDATE settings SET updated_at = CURRENT_TIMESTAMP WHERE key = NEW.key;
END;
`

// Defaults are seeded with INSERT OR IGNORE so a reinstall or upgrade never
// overwrites profiles or settings the user already has.
const defaultData = `
INSERT OR IGNORE INTO profiles (key, name, host, port, protocol, position) VALUES
    ('burp', 'Burp Suite', '127.0.0.1', '8080', 'http', 0),
    ('tor', 'Tor Browser', '127.0.0.1', '9050', 'socks5', 1),
    ('custom', 'Custom Proxy', '', '', 'http', 2);

INSERT OR IGNORE INTO settings (key, value) VALUES
    ('active_profile', 'burp'),
    ('proxy_enabled', 'false'),
    ('state_rev', '0');
`

// runMigrations executes the database schema and seeds missing defaults.
func runMigrations(db *DB) error {
	if _, err := db.db.Exec(schema); err != nil {
		return err
	}

	if _, err := db.db.Exec(defaultData); err != nil {
		return err
	}

	return nil
}
