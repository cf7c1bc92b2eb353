package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/savesync/pkg/savesync"
)

func newStatusCommand() *cobra.Command {
	var titleSpec string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show one title's sync status without transferring anything",
		Long:  "Compares local, server, and last-synced state for --title and prints the offline decision.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			t, store, err := parseTitleSpec(titleSpec)
			if err != nil {
				return err
			}

			details, err := client.GetSaveDetails(context.Background(), t, store)
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}

			decision := savesync.DecideFromDetails(details)
			printStatus(t.IDHex(), details, decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&titleSpec, "title", "", "title-id:path, e.g. 0004000000112233:/media/sd/save.dat")
	cmd.MarkFlagRequired("title")

	return cmd
}

func printStatus(titleIDHex string, d savesync.SaveDetails, decision savesync.Decision) {
	fmt.Printf("%s: %s\n", titleIDHex, decision)
	fmt.Printf("  local:  exists=%v size=%d hash=%s\n", d.LocalExists, d.LocalSize, localHashOrNA(d))
	fmt.Printf("  server: exists=%v size=%d hash=%s last_sync=%d\n", d.ServerExists, d.ServerSize, serverHashOrNA(d), d.ServerLastSync)
	fmt.Printf("  synced: %v\n", d.IsSynced)
}

func localHashOrNA(d savesync.SaveDetails) string {
	if !d.LocalExists {
		return "N/A"
	}
	return d.LocalHash.String()
}

func serverHashOrNA(d savesync.SaveDetails) string {
	if !d.ServerExists {
		return "N/A"
	}
	return d.ServerHash
}
