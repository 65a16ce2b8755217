package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"proxyswitch/internal/app"
)

var (
	appInstance *app.App
	version     = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proxyswitch",
	Short: "Switch system traffic between a direct connection and named proxies",
	Long: `proxyswitch - switch system traffic between a direct connection
and one of several named proxy profiles.

  Quick start:
    proxyswitch status
    proxyswitch enable burp
    proxyswitch use tor
    proxyswitch disable

  Profiles persist across sessions. Ships with three built-in profiles:
    • burp    - Burp Suite intercepting proxy (127.0.0.1:8080, http)
    • tor     - Tor Browser SOCKS proxy (127.0.0.1:9050, socks5)
    • custom  - your own proxy, configured via 'profile set'

  On any failure the connection falls back to direct - the network path is
  never left in an unknown proxy state.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		verbose, _ := cmd.Flags().GetBool("verbose")

		var err error
		appInstance, err = app.New(app.Options{DBPath: dbPath, Verbose: verbose})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return appInstance.Close()
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", "", "settings database path")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("proxyswitch %s\n", version)
	},
}
