package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBlobCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "List, download and delete blobs",
	}
	cmd.AddCommand(newBlobListCmd(a), newBlobGetCmd(a), newBlobDeleteCmd(a))
	return cmd
}

func newBlobListCmd(a *app) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list CONTAINER",
		Short: "List blobs in a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if prefix == "" {
				_, err = client.ListBlobs(cmd.Context(), args[0])
				return err
			}

			infos, err := client.ListBlobInfo(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				a.printer.Infof("There are no blobs matching prefix '%s'.", prefix)
				return nil
			}
			a.printer.Infof("Blobs matching prefix '%s':", prefix)
			for _, info := range infos {
				a.printer.Itemf("%s (%d bytes)", info.Name, info.Size)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list blobs whose name starts with this prefix")
	return cmd
}

func newBlobGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get CONTAINER BLOB",
		Short: "Download a blob to a file or stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			data, err := client.DownloadBlob(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = a.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			a.printer.Successf("Downloaded %s/%s to %s", args[0], args[1], output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default stdout)")
	return cmd
}

func newBlobDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CONTAINER BLOB",
		Short: "Delete a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			return client.DeleteBlob(cmd.Context(), args[0], args[1])
		},
	}
}
