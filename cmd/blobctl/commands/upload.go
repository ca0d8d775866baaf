package commands

import (
	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var container, prefix string
	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a file or a directory tree",
		Long: `Upload a single file, or every file under a directory, as new blobs.

A directory maps each file to PREFIX/<relative path>. A single file is stored
under PREFIX, or under its base name when no prefix is given. Existing blobs are
never overwritten; the upload stops at the first failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			uploaded, err := client.UploadPath(cmd.Context(), args[0], container, prefix)
			if err != nil {
				if len(uploaded) > 0 {
					a.printer.Warnf("%d blob(s) were uploaded before the failure.", len(uploaded))
				}
				return err
			}
			a.printer.Infof("Uploaded %d blob(s).", len(uploaded))
			return nil
		},
	}
	cmd.Flags().StringVarP(&container, "container", "c", "", "target container")
	cmd.Flags().StringVar(&prefix, "prefix", "", "blob name prefix")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}
