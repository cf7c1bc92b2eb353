package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "savesync",
		Short:   "Synchronize handheld game saves with a save-sync server",
		Long:    `savesync keeps a handheld console's game saves in sync with a remote server: upload, download, batch sync, and scheduled background sync.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().String("server-url", "", "save-sync server URL (or SAVESYNC_SERVER_URL)")
	rootCmd.PersistentFlags().String("api-key", "", "server API key (or SAVESYNC_API_KEY)")
	rootCmd.PersistentFlags().String("console-id", "", "console identifier (or SAVESYNC_CONSOLE_ID)")
	rootCmd.PersistentFlags().String("state-dir", "", "directory for the sync journal (or SAVESYNC_STATE_DIR)")

	rootCmd.AddCommand(
		newSyncCommand(),
		newStatusCommand(),
		newUploadCommand(),
		newDownloadCommand(),
		newWatchCommand(),
		newScheduleCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
