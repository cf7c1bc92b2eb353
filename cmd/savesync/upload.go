package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCommand() *cobra.Command {
	var titleSpec string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload one title's local save to the server",
		Long:  "Reads the local save named by --title (title-id:path), bundles it, and uploads it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd)
			if err != nil {
				return err
			}

			t, store, err := parseTitleSpec(titleSpec)
			if err != nil {
				return err
			}

			res, err := client.Upload(context.Background(), t, store)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Printf("uploaded %s (hash %s)\n", t.IDHex(), res.Hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&titleSpec, "title", "", "title-id:path, e.g. 0004000000112233:/media/sd/save.dat")
	cmd.MarkFlagRequired("title")

	return cmd
}
