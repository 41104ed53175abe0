package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/services"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) printReport(r services.RetryReport) {
	a.printf("pushed %d deletions, %d journals, %d entries\n", r.Deletions, r.Roots, r.Entries)
}

func (a *App) syncCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Push changes the server has not seen"}

	cmd.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Push pending deletions, journals and entries once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pw, err := a.password(ctx)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			report, err := a.journal.Retry(ctx, pw)
			a.printReport(report)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Retry every online check interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pw, err := a.password(ctx)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			a.watch(ctx, a.cfg.OnlineCheckInterval, pw)
			return nil
		},
	})
	return cmd
}

// watch keeps the gate probing in the background and runs Retry on every
// tick the store was last seen online, until ctx is done. Failures are
// logged and retried on the next tick.
func (a *App) watch(ctx context.Context, interval time.Duration, pw []byte) {
	go a.gate.Watch(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.gate.Online() {
				continue
			}
			report, err := a.journal.Retry(ctx, pw)
			if err != nil {
				a.logger.Warn(ctx, "retry failed", "error", err)
				continue
			}
			if report != (services.RetryReport{}) {
				a.printReport(report)
			}
		case <-ctx.Done():
			return
		}
	}
}
