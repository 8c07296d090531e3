package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCleanupCmd() *cobra.Command {
	var (
		days       int
		showStatus bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the daily retention scheduler",
		Long: `Keeps the article table inside the retention window. Without flags this
runs as a daemon, sweeping once per day at retention.at. Use the run-once
subcommand for a single sweep, or --status to print the last and next run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			windowDays := days
			if windowDays <= 0 {
				windowDays = a.Config().Retention.WindowDays
			}

			scheduler, err := a.NewScheduler(windowDays)
			if err != nil {
				return fmt.Errorf("build retention scheduler: %w", err)
			}

			if showStatus {
				status, err := scheduler.Status(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler.Start()
			<-ctx.Done()
			a.Logger().Info("retention daemon stopping")
			<-scheduler.Stop().Done()
			return nil
		},
	}

	cmd.PersistentFlags().IntVar(&days, "days", 0, "retention window override in days (0 uses retention.window_days)")
	cmd.Flags().BoolVar(&showStatus, "status", false, "print the last and next scheduled sweep and exit")

	cmd.AddCommand(newCleanupRunOnceCmd(&days))
	return cmd
}

func newCleanupRunOnceCmd(days *int) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single retention sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			windowDays := *days
			if windowDays <= 0 {
				windowDays = a.Config().Retention.WindowDays
			}

			result, err := a.Sweeper().Sweep(cmd.Context(), windowDays)
			if err != nil {
				return fmt.Errorf("run sweep: %w", err)
			}
			a.Logger().Info("sweep finished",
				zap.Int64("deleted", result.Deleted),
				zap.Int64("kept", result.Kept),
			)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
