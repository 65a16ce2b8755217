package paths

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeDir returns the real user's home directory, even when running under
// sudo. Under sudo, os.UserHomeDir() returns /var/root (macOS) or /root
// (Linux), but settings must live in the invoking user's home so that
// privileged and unprivileged invocations share the same database.
func HomeDir() (string, error) {
	// SUDO_USER is set by sudo to the original invoking user.
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		u, err := user.Lookup(sudoUser)
		if err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// DataDir returns ~/.local/share/proxyswitch, creating it if needed.
func DataDir() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "proxyswitch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
