package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/savesync/internal/cliutil"
	"github.com/fenilsonani/savesync/internal/config"
	"github.com/fenilsonani/savesync/pkg/savesync"
)

// loadConfig assembles a config.Config from persistent flags, falling back
// to environment variables when a flag was left empty.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	serverURL, _ := cmd.Flags().GetString("server-url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	consoleID, _ := cmd.Flags().GetString("console-id")
	stateDir, _ := cmd.Flags().GetString("state-dir")

	cfg := config.Config{
		ServerURL:      firstNonEmpty(serverURL, os.Getenv("SAVESYNC_SERVER_URL")),
		APIKey:         firstNonEmpty(apiKey, os.Getenv("SAVESYNC_API_KEY")),
		ConsoleID:      firstNonEmpty(consoleID, os.Getenv("SAVESYNC_CONSOLE_ID")),
		StateDirectory: firstNonEmpty(stateDir, os.Getenv("SAVESYNC_STATE_DIR")),
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("savesync: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// openClient loads config from cmd's flags and opens a savesync.Client
// with the CLI's default stderr logger.
func openClient(cmd *cobra.Command) (*savesync.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return savesync.Open(cfg, nil, nil, cliutil.NewStderrLogger())
}
