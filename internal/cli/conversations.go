// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcusdavidalo/arda/internal/export"
	"github.com/marcusdavidalo/arda/internal/storage"
	"github.com/marcusdavidalo/arda/internal/util"
)

func newConversationsCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "history"},
		Short:   "Manage saved conversations",
		Long: `Manage saved conversations.

Conversations are addressed by the number shown by "arda conversations list".
Numbers shift down after a delete.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, o, "")
		},
	}
	cmd.AddCommand(
		newConvListCommand(o),
		newConvShowCommand(o),
		newConvRenameCommand(o),
		newConvDeleteCommand(o),
		newConvExportCommand(o),
	)
	return cmd
}

func newConvListCommand(o *rootOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, o, query)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only list conversations containing this text")
	return cmd
}

func runList(cmd *cobra.Command, o *rootOptions, query string) error {
	app, err := o.app()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	convs := app.Sessions.Conversations()

	if query == "" {
		fmt.Fprintln(out, strings.TrimRight(storage.FormatList(convs), "\n"))
		return nil
	}

	matches := storage.Search(convs, query)
	if len(matches) == 0 {
		fmt.Fprintf(out, "No conversations match %q.\n", query)
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%s %s\n", util.PadWidth(fmt.Sprint(m.Index), 4), util.TruncateWidth(m.Conversation.Title(), 60))
	}
	return nil
}

func newConvShowCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show N",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			conv, err := conversationAt(app.Sessions.Conversations(), args[0])
			if err != nil {
				return err
			}
			data, err := export.NewMarkdownExporter(&export.Options{IncludeTimestamps: true}).Export(conv)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, markdownFor(out, app.MarkdownStyle())(string(data)))
			return nil
		},
	}
}

func newConvRenameCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename N name",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			n, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			if err := app.Sessions.Rename(n, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed conversation %d to %q.\n", n, strings.TrimSpace(name))
			return nil
		},
	}
}

func newConvDeleteCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete N",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			n, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if err := app.Sessions.Delete(n); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %d.\n", n)
			return nil
		},
	}
}

func newConvExportCommand(o *rootOptions) *cobra.Command {
	var format, output, theme string
	var noMeta bool
	cmd := &cobra.Command{
		Use:   "export N",
		Short: "Export a conversation as Markdown, JSON or HTML",
		Long: `Export a conversation as Markdown, JSON or HTML.

Output goes to stdout, to the file given with --output, or into a generated
file name when --output is an existing directory.`,
		Example: `  arda conversations export 0
  arda conversations export 2 --format html --output ./exports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			conv, err := conversationAt(app.Sessions.Conversations(), args[0])
			if err != nil {
				return err
			}

			exporter, err := export.ForFormat(format, &export.Options{
				IncludeMetadata:   !noMeta,
				IncludeTimestamps: true,
				Theme:             theme,
			})
			if err != nil {
				return err
			}

			if info, err := os.Stat(output); err == nil && info.IsDir() {
				path, err := export.ExportToFile(conv, exporter, output)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported conversation %s to %s\n", args[0], path)
				return nil
			}

			data, err := exporter.Export(conv)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := util.AtomicWriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported conversation %s to %s\n", args[0], output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (md, json, html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file or directory instead of stdout")
	cmd.Flags().StringVar(&theme, "theme", "dark", "HTML theme (dark, light)")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "Leave out the metadata header")
	return cmd
}
