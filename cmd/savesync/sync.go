package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/savesync/pkg/savesync"
)

func newSyncCommand() *cobra.Command {
	var titleSpecs []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a batch sync across multiple titles",
		Long:  "Classifies every --title (repeatable, title-id:path) via the server's sync plan and acts on each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			targets, err := buildSyncTargets(titleSpecs)
			if err != nil {
				return err
			}

			result, err := client.SyncAll(context.Background(), targets)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			printBatchResult(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&titleSpecs, "title", nil, "title-id:path, repeatable")
	cmd.MarkFlagRequired("title")

	return cmd
}

func buildSyncTargets(specs []string) ([]savesync.SyncTarget, error) {
	targets := make([]savesync.SyncTarget, 0, len(specs))
	for _, spec := range specs {
		t, store, err := parseTitleSpec(spec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, savesync.SyncTarget{Title: t, Store: store})
	}
	return targets, nil
}

func printBatchResult(r savesync.BatchResult) {
	fmt.Printf("uploaded=%d downloaded=%d skipped=%d up_to_date=%d failed=%d\n",
		r.Uploaded, r.Downloaded, r.Skipped, r.UpToDate, r.Failed)
	if len(r.Conflicts) > 0 {
		fmt.Printf("conflicts (needs manual resolution): %v\n", r.Conflicts)
	}
}
