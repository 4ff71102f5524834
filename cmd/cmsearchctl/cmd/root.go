// Package cmd provides the CLI commands for cmsearchctl.
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cmsearch/internal/config"
	"github.com/kailas-cloud/cmsearch/internal/version"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	addr    string
	token   string
	user    string
	roles   []string
	format  string
	timeout time.Duration
	noColor bool
}

func (o *rootOptions) validate() error {
	if o.format != formatText && o.format != formatJSON {
		return fmt.Errorf("--format must be %q or %q, got %q", formatText, formatJSON, o.format)
	}
	if o.addr == "" {
		return fmt.Errorf("--addr is required")
	}
	return nil
}

func (o *rootOptions) client() (*apiClient, error) {
	return newAPIClient(o.addr, o.token, o.user, o.roles, o.timeout)
}

func (o *rootOptions) styles(w io.Writer) Styles {
	if o.noColor || o.format == formatJSON {
		return NoColorStyles()
	}
	return DetectStyles(w)
}

// NewRootCmd creates the root command for the cmsearchctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cmsearchctl",
		Short: "Query a cmsearch server",
		Long: `cmsearchctl runs permission-filtered searches against a cmsearch server.

Every request is made on behalf of a caller. Without --user the guest
caller is used, which only sees published content.

Examples:
  cmsearchctl indexes
  cmsearchctl search site "harbor festival" --rows 5 --highlight content
  cmsearchctl --user alice --roles editor search staff "budget" --page 2
  cmsearchctl lookup site path /sites/default/news/a.html`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.validate()
		},
	}

	cmd.SetVersionTemplate("cmsearchctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.addr, "addr",
		config.GetEnv("CMSEARCH_ADDR", "http://localhost:8080"), "Server base URL (env CMSEARCH_ADDR)")
	cmd.PersistentFlags().StringVar(&opts.token, "token",
		config.GetEnv("CMSEARCH_TOKEN", ""), "API key sent as Bearer token (env CMSEARCH_TOKEN)")
	cmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "Search on behalf of this user")
	cmd.PersistentFlags().StringSliceVarP(&opts.roles, "roles", "r", nil, "Roles asserted for the user (repeatable)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newIndexesCmd(opts))
	cmd.AddCommand(newHealthCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
