package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/clinic-booking/internal/notify"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect and retry client notifications",
	}
	cmd.AddCommand(newNotificationsRetryCmd())
	return cmd
}

func newNotificationsRetryCmd() *cobra.Command {
	var (
		providerID uint64
		opts       notify.RetryOptions
	)

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-send failed booking confirmations once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if providerID > 0 {
				opts.ProviderID = &providerID
			}
			res, err := a.dispatcher.RetryFailed(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, succeeded %d\n", res.Attempted, res.Succeeded)
			return nil
		},
	}

	f := cmd.Flags()
	f.Uint64Var(&providerID, "provider", 0, "only retry this provider's bookings")
	f.IntVar(&opts.WindowHours, "window-hours", notify.DefaultWindowHours, "only retry bookings created within this many hours")
	f.IntVar(&opts.Limit, "limit", notify.DefaultRetryLimit, "maximum bookings to retry")
	return cmd
}
