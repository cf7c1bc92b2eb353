package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/savesync/internal/savestore"
)

func newWatchCommand() *cobra.Command {
	var titleSpecs []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch save directories and sync whenever they change",
		Long:  "Watches the directory of each --title and re-runs a batch sync on every change, until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			targets, err := buildSyncTargets(titleSpecs)
			if err != nil {
				return err
			}

			dirs := watchDirs(titleSpecs)
			watcher, err := savestore.NewWatcher(dirs...)
			if err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			defer watcher.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println("watching for save changes, press Ctrl-C to stop")
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					result, err := client.SyncAll(ctx, targets)
					if err != nil {
						fmt.Printf("sync failed: %v\n", err)
						continue
					}
					printBatchResult(result)
				}
			}
		},
	}

	cmd.Flags().StringArrayVar(&titleSpecs, "title", nil, "title-id:path, repeatable")
	cmd.MarkFlagRequired("title")

	return cmd
}

// watchDirs returns the distinct parent directories of every title spec's
// path, for fsnotify to watch.
func watchDirs(specs []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			continue
		}
		dir := filepath.Dir(parts[1])
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}
