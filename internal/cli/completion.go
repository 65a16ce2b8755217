package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"proxyswitch/internal/app"
)

// ensureApp lazily initializes appInstance for shell completion.
// Cobra may invoke ValidArgsFunction without running PersistentPreRunE.
func ensureApp() error {
	if appInstance != nil {
		return nil
	}
	var err error
	appInstance, err = app.New(app.Options{})
	return err
}

// completeProfileKeys provides shell completion for profile keys.
func completeProfileKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	if err := ensureApp(); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	st, err := appInstance.Storage.State(context.Background())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var completions []string
	for _, key := range st.Profiles.Keys() {
		if strings.HasPrefix(strings.ToLower(key), strings.ToLower(toComplete)) {
			completions = append(completions, key)
		}
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}
