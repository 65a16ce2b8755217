package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the settings store and keep the system proxy in sync",
	Long: `Run the background reconciler. On startup the persisted intent is
re-asserted (host proxy settings do not survive a restart). Afterwards every
committed settings change - from this process, the TUI, or another CLI
invocation - is reconciled against the live proxy configuration. A periodic
job repairs drift caused by writes from other processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("reassert-interval")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctrl := appInstance.Controller
		logger := appInstance.Logger

		if err := ctrl.Startup(ctx); err != nil {
			// Startup failure already resolved toward direct; keep running.
			logger.Error("startup re-assertion failed", "error", err)
		}

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		// Cross-process writes bump the revision without reaching the
		// in-process change stream; poll and re-assert when it moves.
		lastRev, _ := appInstance.Storage.Revision(ctx)
		if _, err := scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				rev, err := appInstance.Storage.Revision(ctx)
				if err != nil {
					logger.Error("revision poll failed", "error", err)
					return
				}
				if rev == lastRev {
					return
				}
				lastRev = rev
				logger.Debug("external settings change detected", "revision", rev)
				if err := ctrl.Reassert(ctx); err != nil {
					logger.Error("drift repair failed", "error", err)
				}
			}),
		); err != nil {
			return fmt.Errorf("failed to schedule drift repair: %w", err)
		}

		scheduler.Start()
		defer scheduler.Shutdown()

		logger.Info("daemon started", "db", appInstance.Config.DBPath, "reassert_interval", interval)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return ctrl.Run(ctx)
		})

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("daemon stopped")
		return nil
	},
}

func init() {
	daemonCmd.Flags().Duration("reassert-interval", 30*time.Second, "how often to check for external settings changes")
	rootCmd.AddCommand(daemonCmd)
}
