package cmd

import (
	"github.com/spf13/cobra"
)

func newIndexesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "indexes",
		Aliases: []string{"ls"},
		Short:   "List the search indexes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}
			resp, err := client.Indexes(cmd.Context())
			if err != nil {
				return err
			}
			if root.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printIndexes(cmd.OutOrStdout(), root.styles(cmd.OutOrStdout()), resp)
			return nil
		},
	}
}
