package commands

import (
	"github.com/spf13/cobra"
)

func newContainerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Create, delete, list and check containers",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a container",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				return client.CreateContainer(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a container and all of its blobs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				return client.DeleteContainer(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "exists NAME",
			Short: "Report whether a container exists",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				_, err = client.ContainerExists(cmd.Context(), args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List containers in the storage account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				_, err = client.ListContainers(cmd.Context())
				return err
			},
		},
	)
	return cmd
}
