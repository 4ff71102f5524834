package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLookupCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <index> <field> <value>",
		Short: "Fetch one document by a unique field",
		Long: `Fetch the document whose unique field equals value.

Documents the caller may not read are reported as not found.

Example:
  cmsearchctl lookup site path /sites/default/news/a.html`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}
			resp, err := client.Lookup(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if root.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			s := root.styles(cmd.OutOrStdout())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), s.Header.Render(resp.Index))
			printItem(cmd.OutOrStdout(), s, 0, resp.Item)
			return nil
		},
	}
}
