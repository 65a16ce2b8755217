package sysproxy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type networksetupController struct{}

func newPlatformController() (Controller, error) {
	if _, err := exec.LookPath("networksetup"); err != nil {
		return nil, fmt.Errorf("networksetup not found: %w", err)
	}
	return &networksetupController{}, nil
}

// Apply sets or clears the macOS system proxy on all active network services.
func (n *networksetupController) Apply(ctx context.Context, cfg Config) error {
	ifaces, err := activeNetworkServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to detect network services: %w", err)
	}

	if cfg.Mode == ModeDirect {
		return disableAll(ctx, ifaces)
	}

	port := fmt.Sprint(cfg.Port)
	for _, iface := range ifaces {
		if cfg.Scheme == "socks5" {
			if err := run(ctx, "networksetup", "-setsocksfirewallproxy", iface, cfg.Host, port); err != nil {
				return fmt.Errorf("failed to set SOCKS proxy on %s: %w", iface, err)
			}
			if err := run(ctx, "networksetup", "-setsocksfirewallproxystate", iface, "on"); err != nil {
				return fmt.Errorf("failed to enable SOCKS proxy on %s: %w", iface, err)
			}
			continue
		}

		// HTTP proxy.
		if err := run(ctx, "networksetup", "-setwebproxy", iface, cfg.Host, port); err != nil {
			return fmt.Errorf("failed to set HTTP proxy on %s: %w", iface, err)
		}
		if err := run(ctx, "networksetup", "-setwebproxystate", iface, "on"); err != nil {
			return fmt.Errorf("failed to enable HTTP proxy on %s: %w", iface, err)
		}

		// HTTPS traffic goes through the same endpoint.
		if err := run(ctx, "networksetup", "-setsecurewebproxy", iface, cfg.Host, port); err != nil {
			return fmt.Errorf("failed to set HTTPS proxy on %s: %w", iface, err)
		}
		if err := run(ctx, "networksetup", "-setsecurewebproxystate", iface, "on"); err != nil {
			return fmt.Errorf("failed to enable HTTPS proxy on %s: %w", iface, err)
		}
	}

	return nil
}

func disableAll(ctx context.Context, ifaces []string) error {
	var firstErr error
	for _, iface := range ifaces {
		if err := run(ctx, "networksetup", "-setsocksfirewallproxystate", iface, "off"); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := run(ctx, "networksetup", "-setwebproxystate", iface, "off"); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := run(ctx, "networksetup", "-setsecurewebproxystate", iface, "off"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// activeNetworkServices returns ALL non-disabled network services.
func activeNetworkServices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "networksetup", "-listallnetworkservices").Output()
	if err != nil {
		return nil, err
	}

	var services []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		// Skip header line, empty lines, and disabled services (marked with *).
		if line == "" || strings.HasPrefix(line, "An asterisk") || strings.HasPrefix(line, "*") {
			continue
		}
		services = append(services, line)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no active network services found")
	}

	return services, nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
