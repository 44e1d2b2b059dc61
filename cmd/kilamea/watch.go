package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ksync "github.com/nhle/kilamea/internal/sync"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Receive mail periodically until interrupted (SIGHUP forces a poll)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if interval <= 0 {
				interval = a.cfg.Sync.PollInterval()
			}

			p := ksync.NewPoller(a.coord, interval,
				ksync.WithPollOnStart(a.bag.Options.RetrieveOnStart))
			p.Start(ctx)
			defer p.Stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			a.logger.Info("watching for mail", "interval", interval, "accounts", len(a.bag.Accounts))

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hup:
					p.Refresh()
				case res := <-p.Results():
					renderPollResult(a.out, res, p.Statuses())
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (defaults to the configured one)")
	return cmd
}
