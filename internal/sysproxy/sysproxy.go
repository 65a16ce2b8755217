// Package sysproxy declares which upstream proxy the host network stack
// should use. It does not implement any proxy protocol; it only drives the
// platform's proxy settings.
package sysproxy

import (
	"context"
	"fmt"
)

// Mode selects between the two live configuration variants.
type Mode int

const (
	// ModeDirect bypasses any proxy.
	ModeDirect Mode = iota
	// ModeFixed routes all traffic through one upstream proxy.
	ModeFixed
)

// Config is the derived, host-level proxy setting. It is never persisted; it
// is a pure function of the active profile and the enabled flag.
type Config struct {
	Mode   Mode
	Scheme string // "http" or "socks5"
	Host   string
	Port   int
}

// Direct returns the configuration that bypasses any proxy.
func Direct() Config {
	return Config{Mode: ModeDirect}
}

// Fixed returns the configuration routing traffic through one upstream proxy.
func Fixed(scheme, host string, port int) Config {
	return Config{Mode: ModeFixed, Scheme: scheme, Host: host, Port: port}
}

func (c Config) String() string {
	if c.Mode == ModeDirect {
		return "direct"
	}
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// Controller applies proxy configurations to the host network stack. Apply
// is the sole effect on the live network path.
type Controller interface {
	Apply(ctx context.Context, cfg Config) error
}

// New returns the system proxy controller for the current platform.
func New() (Controller, error) {
	return newPlatformController()
}
