package cli

import (
	"github.com/spf13/cobra"
	"proxyswitch/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive settings panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(tui.Deps{
			Storage:    appInstance.Storage,
			Controller: appInstance.Controller,
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
