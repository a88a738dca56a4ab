// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/search"
	"github.com/marcusdavidalo/arda/internal/storage"
)

type askOptions struct {
	search bool
	raw    bool
	id     string
}

func newAskCommand(o *rootOptions) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a single question",
		Long: `Ask a single question and print the reply.

The exchange is saved as a new conversation, or appended to the one given
with --id. Without arguments the message is read from stdin.`,
		Example: `  arda ask "How do I reverse a slice in Go?"
  arda ask --search "latest Go release"
  git diff | arda ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, o, opts, args)
		},
	}
	cmd.Flags().BoolVarP(&opts.search, "search", "s", false, "Also search the web for the message")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print Markdown without rendering")
	cmd.Flags().StringVar(&opts.id, "id", "", "Continue the conversation with this id")
	return cmd
}

func runAsk(cmd *cobra.Command, o *rootOptions, opts askOptions, args []string) error {
	text, err := askText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	app, err := o.app()
	if err != nil {
		return err
	}
	if opts.id != "" {
		if _, ok := app.Sessions.Load(opts.id); !ok {
			return fmt.Errorf("%s: %w", opts.id, storage.ErrConversationNotFound)
		}
	} else if !app.Sessions.Active().IsEmpty() {
		app.Sessions.StartNew()
	}

	var (
		reply model.Turn
		items []search.Item
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		reply, err = app.Assistant.Send(ctx, text)
		return err
	})
	if opts.search {
		g.Go(func() error {
			items = app.Assistant.Search(ctx, text)
			return nil
		})
	}
	err = g.Wait()

	out := cmd.OutOrStdout()
	render := markdownFor(out, app.MarkdownStyle())
	if opts.raw {
		render = func(s string) string { return s }
	}

	if err != nil {
		if reply.Content != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), reply.Content)
		}
		return err
	}
	fmt.Fprintln(out, render(reply.Content))
	if opts.search {
		fmt.Fprintln(out, render(search.FormatMarkdown(text, items)))
	}
	return nil
}

// askText joins args, or reads stdin when there are none.
func askText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		return "", errors.New("no message given")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
