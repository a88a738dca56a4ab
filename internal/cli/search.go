// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcusdavidalo/arda/internal/search"
)

func newSearchCommand(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search query",
		Short: "Search the web",
		Long: `Search the web with the configured Custom Search engine.

Failures are logged and reported as no results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			if !app.Search.IsConfigured() {
				return errors.New("search is not configured: set ARDA_SEARCH_API_KEY and ARDA_SEARCH_ENGINE_ID")
			}

			query := strings.Join(args, " ")
			items := app.Assistant.Search(cmd.Context(), query)

			out := cmd.OutOrStdout()
			if asJSON {
				if items == nil {
					items = []search.Item{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			fmt.Fprintln(out, markdownFor(out, app.MarkdownStyle())(search.FormatMarkdown(query, items)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
