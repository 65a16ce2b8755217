package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"proxyswitch/internal/storage/models"
)

var enableCmd = &cobra.Command{
	Use:               "enable [profile]",
	Short:             "Route traffic through a proxy profile",
	Long: `Route system traffic through a proxy profile.
If no profile is given, the currently selected profile is used.
The profile must be complete (host and port set) before it can be enabled.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProfileKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		key := ""
		if len(args) > 0 {
			key = args[0]
		}

		if err := appInstance.Controller.Enable(ctx, key); err != nil {
			return err
		}

		st, err := appInstance.Storage.State(ctx)
		if err != nil {
			return err
		}
		active, p, _ := st.Active()

		fmt.Printf("Proxy enabled: %s (%s)\n", p.Name, active)
		fmt.Printf("  Target: %s://%s:%s\n", p.Scheme(), p.Host, p.Port)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Restore the direct connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.Controller.Disable(context.Background()); err != nil {
			return err
		}
		fmt.Println("Proxy disabled, connection is direct.")
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip the proxy between enabled and disabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := appInstance.Controller.Toggle(context.Background())
		if err != nil {
			return err
		}
		if enabled {
			fmt.Println("Proxy enabled.")
		} else {
			fmt.Println("Proxy disabled, connection is direct.")
		}
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:               "use <profile>",
	Short:             "Select the active profile",
	Long: `Select the active profile. If the proxy is currently enabled, traffic
switches to the new profile immediately - no disable/enable cycle needed.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProfileKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		key := args[0]

		st, err := appInstance.Storage.State(ctx)
		if err != nil {
			return err
		}
		if _, ok := st.Profiles.Get(key); !ok {
			return fmt.Errorf("profile not found: %s", key)
		}

		if err := appInstance.Storage.SetActiveProfile(ctx, key); err != nil {
			return err
		}

		// Reconcile so an enabled proxy re-points at the new profile.
		if err := appInstance.Controller.Reconcile(ctx); err != nil {
			return err
		}

		if st.ProxyEnabled {
			fmt.Printf("Active profile: %s (traffic switched)\n", key)
		} else {
			fmt.Printf("Active profile: %s\n", key)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted proxy state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := appInstance.Storage.State(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		active, p, ok := st.Active()

		fmt.Println("Proxy Status")
		fmt.Println("════════════")
		fmt.Println()
		if st.ProxyEnabled {
			fmt.Printf("Status:     ● Enabled\n")
		} else {
			fmt.Printf("Status:     ○ Direct connection\n")
		}
		if ok {
			fmt.Printf("Profile:    %s (%s)\n", p.Name, active)
			fmt.Printf("Protocol:   %s\n", p.Protocol)
			if p.IsComplete() {
				fmt.Printf("Target:     %s:%s\n", p.Host, p.Port)
			} else {
				fmt.Printf("Target:     (incomplete, set host and port)\n")
			}
		}

		rev, err := appInstance.Storage.Revision(ctx)
		if err == nil {
			fmt.Printf("Revision:   %d\n", rev)
		}
		return nil
	},
}

// profileLabel renders "Name (key)" for display.
func profileLabel(key string, p models.Profile) string {
	return fmt.Sprintf("%s (%s)", p.Name, key)
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the state as JSON")
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(statusCmd)
}
