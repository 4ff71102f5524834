package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  `Check server health. Exits non-zero unless every component is ok.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}
			resp, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			if root.format == formatJSON {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				printHealth(cmd.OutOrStdout(), root.styles(cmd.OutOrStdout()), resp)
			}
			if resp.Status != "ok" {
				return fmt.Errorf("server is %s", resp.Status)
			}
			return nil
		},
	}
}
