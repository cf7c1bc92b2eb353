package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/savesync/pkg/savesync"
)

func newScheduleCommand() *cobra.Command {
	var titleSpecs []string
	var cronExpr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run batch sync on a cron schedule until interrupted",
		Long:  "Runs a batch sync over every --title on the standard five-field cron expression --cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := client.RunScheduled(ctx, cronExpr, func() []savesync.SyncTarget {
				targets, err := buildSyncTargets(titleSpecs)
				if err != nil {
					fmt.Printf("schedule: rebuilding targets failed: %v\n", err)
					return nil
				}
				return targets
			})
			if err != nil {
				return fmt.Errorf("schedule failed: %w", err)
			}

			fmt.Printf("scheduled sync on %q, press Ctrl-C to stop\n", cronExpr)
			<-ctx.Done()
			stopCtx := c.Stop()
			<-stopCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&titleSpecs, "title", nil, "title-id:path, repeatable")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "standard five-field cron expression, e.g. \"*/15 * * * *\"")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("cron")

	return cmd
}
