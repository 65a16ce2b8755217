package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"proxyswitch/internal/storage/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage proxy profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := appInstance.Storage.State(ctx)
		if err != nil {
			return err
		}
		active, _, _ := st.Active()

		for _, key := range st.Profiles.Keys() {
			p, _ := st.Profiles.Get(key)
			marker := " "
			if key == active {
				marker = "*"
			}
			target := fmt.Sprintf("%s:%s", p.Host, p.Port)
			if !p.IsComplete() {
				target = "(incomplete)"
			}
			fmt.Printf("%s %-10s %-14s %-8s %s\n", marker, key, p.Name, p.Protocol, target)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:               "show <profile>",
	Short:             "Show one profile's fields",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProfileKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := appInstance.Storage.State(ctx)
		if err != nil {
			return err
		}
		p, ok := st.Profiles.Get(args[0])
		if !ok {
			return fmt.Errorf("profile not found: %s", args[0])
		}

		fmt.Printf("Key:        %s\n", args[0])
		fmt.Printf("Name:       %s\n", p.Name)
		fmt.Printf("Host:       %s\n", p.Host)
		fmt.Printf("Port:       %s\n", p.Port)
		fmt.Printf("Protocol:   %s\n", p.Protocol)
		if err := p.Validate(); err != nil {
			fmt.Printf("Note:       %v\n", err)
		}
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:               "set <profile>",
	Short:             "Edit a profile's fields",
	Long: `Edit a profile's fields. The save is validated first: an empty host or a
port outside 1-65535 is rejected and nothing is written. Saving does not
change whether the proxy is enabled; if the edited profile is active while
the proxy is enabled, the new target is applied immediately.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProfileKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveProfile(cmd, args[0], false)
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveProfile(cmd, args[0], true)
	},
}

func saveProfile(cmd *cobra.Command, key string, isNew bool) error {
	ctx := context.Background()

	st, err := appInstance.Storage.State(ctx)
	if err != nil {
		return err
	}

	p, exists := st.Profiles.Get(key)
	if isNew && exists {
		return fmt.Errorf("profile already exists: %s", key)
	}
	if !isNew && !exists {
		return fmt.Errorf("profile not found: %s", key)
	}
	if isNew {
		p = models.Profile{Protocol: models.ProtocolHTTP}
	}

	if cmd.Flags().Changed("name") {
		p.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("host") {
		p.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		p.Port, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("protocol") {
		protocol, _ := cmd.Flags().GetString("protocol")
		if !models.ValidProtocol(protocol) {
			return fmt.Errorf("unsupported protocol: %s (use http, https, or socks5)", protocol)
		}
		p.Protocol = protocol
	}
	if p.Name == "" {
		p.Name = key
	}

	// Validate before writing; an invalid save is rejected whole.
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile '%s' rejected: %w", key, err)
	}

	if err := appInstance.Storage.SaveProfile(ctx, key, p); err != nil {
		return err
	}

	// Re-point live traffic when the edited profile is active and enabled.
	if err := appInstance.Controller.Reconcile(ctx); err != nil {
		return err
	}

	fmt.Printf("Saved %s\n", profileLabel(key, p))
	return nil
}

func addProfileFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("host", "", "proxy host")
	cmd.Flags().String("port", "", "proxy port (1-65535)")
	cmd.Flags().String("protocol", "", "proxy protocol (http, https, socks5)")
	cmd.RegisterFlagCompletionFunc("protocol", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{models.ProtocolHTTP, models.ProtocolHTTPS, models.ProtocolSOCKS5}, cobra.ShellCompDirectiveNoFileComp
	})
}

func init() {
	addProfileFieldFlags(profileSetCmd)
	addProfileFieldFlags(profileAddCmd)

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileAddCmd)
	rootCmd.AddCommand(profileCmd)
}
