// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcusdavidalo/arda/internal/config"
)

func newConfigCommand(o *rootOptions) *cobra.Command {
	var asJSON bool
	show := func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(o.cfg.Redacted())
		}
		fmt.Fprint(out, o.cfg.String())
		return nil
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration",
		Long: `Show or create the configuration.

Settings come from ~/.arda/config.toml (or --config), then .env files, then
ARDA_* environment variables. API keys are masked when shown.`,
		Args: cobra.NoArgs,
		RunE: show,
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := o.resolvedConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		newConfigInitCommand(o),
	)
	return cmd
}

func newConfigInitCommand(o *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.resolvedConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat config file: %w", err)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// resolvedConfigPath is --config, or the default location.
func (o *rootOptions) resolvedConfigPath() (string, error) {
	if p := o.configPath(); p != "" {
		return p, nil
	}
	return config.ConfigPath()
}
