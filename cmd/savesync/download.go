package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCommand() *cobra.Command {
	var titleSpec string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download one title's save from the server",
		Long:  "Fetches the server's bundle for --title (title-id:path), decodes it, and writes it locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			t, store, err := parseTitleSpec(titleSpec)
			if err != nil {
				return err
			}

			res, err := client.Download(context.Background(), t, store)
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}

			fmt.Printf("downloaded %s (hash %s)\n", t.IDHex(), res.Hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&titleSpec, "title", "", "title-id:path, e.g. 0004000000112233:/media/sd/save.dat")
	cmd.MarkFlagRequired("title")

	return cmd
}
