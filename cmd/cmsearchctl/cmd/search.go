package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	start         int
	rows          int
	page          int
	fields        []string
	sort          []string
	locales       []string
	categories    []string
	types         []string
	siteRoots     []string
	dateField     string
	from          string
	to            string
	highlight     []string
	snippets      int
	fragSize      int
	fieldMatch    bool
	ignoreMaxRows bool
	debugSecret   string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <index> [query...]",
		Short: "Search an index",
		Long: `Search an index on behalf of the caller.

Only documents the caller may read are printed. Without a query every
document matches. Asking for a page past the last visible result returns
the last page that has content.

Examples:
  cmsearchctl search site "harbor festival"
  cmsearchctl search site --type article --locale en --sort "-released"
  cmsearchctl search site festival --page 3 --rows 10 --highlight content
  cmsearchctl search site --from 2024-01-01 --to 2024-06-30 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.values(strings.Join(args[1:], " "), root.format == formatText)
			if err != nil {
				return err
			}
			client, err := root.client()
			if err != nil {
				return err
			}
			resp, err := client.Search(cmd.Context(), args[0], params, opts.debugSecret)
			if err != nil {
				return err
			}
			if root.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printSearch(cmd.OutOrStdout(), root.styles(cmd.OutOrStdout()), resp)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.start, "start", 0, "Offset in visible results")
	cmd.Flags().IntVarP(&opts.rows, "rows", "n", 10, "Results per page")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 0, "1-based page number (overrides --start)")
	cmd.Flags().StringSliceVarP(&opts.fields, "fields", "F", nil, "Fields to return; \"*\" for all allowed fields")
	cmd.Flags().StringSliceVarP(&opts.sort, "sort", "s", nil, "Sort keys: field, -field or \"field desc\" (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.locales, "locale", "l", nil, "Accepted locales (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "Accepted categories (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "Accepted resource types (repeatable)")
	cmd.Flags().StringSliceVar(&opts.siteRoots, "site-root", nil, "Accepted site roots (repeatable)")
	cmd.Flags().StringVar(&opts.dateField, "date-field", "", "Field --from/--to apply to (server default: released)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Earliest date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&opts.to, "to", "", "Latest date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringSliceVarP(&opts.highlight, "highlight", "H", nil, "Fields to highlight (repeatable)")
	cmd.Flags().IntVar(&opts.snippets, "snippets", 0, "Snippets per highlighted field")
	cmd.Flags().IntVar(&opts.fragSize, "frag-size", 0, "Snippet size in characters")
	cmd.Flags().BoolVar(&opts.fieldMatch, "require-field-match", false, "Only highlight terms matched in the same field")
	cmd.Flags().BoolVar(&opts.ignoreMaxRows, "ignore-max-rows", false, "Skip the index row ceiling where allowed")
	cmd.Flags().StringVar(&opts.debugSecret, "debug-secret", "", "Debug credential lifting the index limits")

	return cmd
}

// values translates the flags into query parameters.
func (o searchOptions) values(text string, markHighlights bool) (url.Values, error) {
	if o.rows < 0 || o.start < 0 || o.page < 0 {
		return nil, fmt.Errorf("--rows, --start and --page must not be negative")
	}
	start := o.start
	if o.page > 0 {
		start = (o.page - 1) * o.rows
	}

	v := url.Values{}
	if text = strings.TrimSpace(text); text != "" {
		v.Set("q", text)
	}
	v.Set("start", strconv.Itoa(start))
	v.Set("rows", strconv.Itoa(o.rows))
	addAll(v, "fl", o.fields)
	addAll(v, "sort", o.sort)
	addAll(v, "locale", o.locales)
	addAll(v, "category", o.categories)
	addAll(v, "type", o.types)
	addAll(v, "site_root", o.siteRoots)

	if o.from != "" || o.to != "" {
		if o.dateField != "" {
			v.Set("date_field", o.dateField)
		}
		for name, raw := range map[string]string{"from": o.from, "to": o.to} {
			if raw == "" {
				continue
			}
			t, err := parseDate(raw)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", name, err)
			}
			v.Set(name, t.Format(time.RFC3339))
		}
	}

	if len(o.highlight) > 0 {
		v.Set("hl", "true")
		addAll(v, "hl.fl", o.highlight)
		if o.snippets > 0 {
			v.Set("hl.snippets", strconv.Itoa(o.snippets))
		}
		if o.fragSize > 0 {
			v.Set("hl.fragsize", strconv.Itoa(o.fragSize))
		}
		if o.fieldMatch {
			v.Set("hl.require_field_match", "true")
		}
		if markHighlights {
			v.Set("hl.pre", markOpen)
			v.Set("hl.post", markClose)
		}
	}

	if o.ignoreMaxRows {
		v.Set("ignore_max_rows", "true")
	}
	return v, nil
}

func addAll(v url.Values, key string, values []string) {
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			v.Add(key, s)
		}
	}
}

// parseDate accepts a calendar date in UTC or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
