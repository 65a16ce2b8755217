package sysproxy

import (
	"context"
	"fmt"
	"os/exec"
)

const gnomeProxySchema = "org.gnome.system.proxy"

type gsettingsController struct{}

func newPlatformController() (Controller, error) {
	if _, err := exec.LookPath("gsettings"); err != nil {
		return nil, fmt.Errorf("gsettings not found: %w", err)
	}
	return &gsettingsController{}, nil
}

// Apply sets or clears the GNOME system proxy (Ubuntu/GNOME desktops).
func (g *gsettingsController) Apply(ctx context.Context, cfg Config) error {
	if cfg.Mode == ModeDirect {
		return runCommand(ctx, "gsettings", "set", gnomeProxySchema, "mode", "none")
	}

	var commands [][]string
	if cfg.Scheme == "socks5" {
		commands = [][]string{
			{"gsettings", "set", gnomeProxySchema + ".socks", "host", cfg.Host},
			{"gsettings", "set", gnomeProxySchema + ".socks", "port", fmt.Sprint(cfg.Port)},
		}
	} else {
		commands = [][]string{
			// HTTP proxy.
			{"gsettings", "set", gnomeProxySchema + ".http", "host", cfg.Host},
			{"gsettings", "set", gnomeProxySchema + ".http", "port", fmt.Sprint(cfg.Port)},

			// HTTPS traffic goes through the same endpoint.
			{"gsettings", "set", gnomeProxySchema + ".https", "host", cfg.Host},
			{"gsettings", "set", gnomeProxySchema + ".https", "port", fmt.Sprint(cfg.Port)},
		}
	}

	// Switch mode last so a half-written endpoint is never live.
	commands = append(commands, []string{"gsettings", "set", gnomeProxySchema, "mode", "manual"})

	for _, args := range commands {
		if err := runCommand(ctx, args[0], args[1:]...); err != nil {
			return fmt.Errorf("failed to run %v: %w", args, err)
		}
	}

	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
