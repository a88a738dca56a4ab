// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marcusdavidalo/arda/internal/config"
	"github.com/marcusdavidalo/arda/internal/logging"
	"github.com/marcusdavidalo/arda/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions carries state shared by every command: the bound flags, the
// loaded configuration and the lazily built App.
type rootOptions struct {
	v   *viper.Viper
	cfg *config.Config

	application *App
	shutdown    telemetry.ShutdownFunc
}

// Execute runs the arda command line. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, o := newRootCommand()
	defer o.close()
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand returns the arda root command.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *rootOptions) {
	o := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "arda",
		Short: "Arda is a terminal chat assistant with persistent conversations",
		Long: `Arda is a general purpose chat assistant for the terminal.

Conversations are saved locally and can be resumed, renamed, exported and
deleted. Without a subcommand arda opens the full-screen chat.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.setup,
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, o, chatOptions{})
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("arda %s (commit %s, built %s)\n", Version, GitCommit, BuildDate))

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default ~/.arda/config.toml)")
	flags.Bool("with-caller", false, "Log caller")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, text)")
	flags.String("log-file", "", "Log file (default: stderr, ~/.arda/arda.log for the full-screen chat)")

	o.v.SetEnvPrefix("arda")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()
	cobra.CheckErr(o.v.BindPFlags(flags))

	cmd.AddCommand(
		newChatCommand(o),
		newAskCommand(o),
		newSearchCommand(o),
		newConversationsCommand(o),
		newConfigCommand(o),
	)
	return cmd, o
}

// setup loads .env files and the config, then initializes logging and
// tracing. Flags override the config file and environment.
func (o *rootOptions) setup(cmd *cobra.Command, args []string) error {
	envFiles := []string{".env"}
	if dir, err := config.ConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(dir, ".env"))
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath())
	if err != nil {
		return err
	}
	o.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	o.cfg = cfg

	if err := o.initLogging(false); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	o.shutdown = shutdown

	log.Debug().
		Str("config", o.configPath()).
		Str("backend", cfg.Storage.Backend).
		Msg("Loaded configuration")
	return nil
}

func (o *rootOptions) configPath() string {
	return o.v.GetString("config")
}

// applyFlags copies explicitly set logging flags (or ARDA_LOG_* variables)
// over cfg.
func (o *rootOptions) applyFlags(cfg *config.Config) {
	if o.v.IsSet("log-level") {
		cfg.Logging.Level = o.v.GetString("log-level")
	}
	if o.v.IsSet("log-format") {
		cfg.Logging.Format = o.v.GetString("log-format")
	}
	if o.v.IsSet("log-file") {
		cfg.Logging.File = o.v.GetString("log-file")
	}
	if o.v.IsSet("with-caller") {
		cfg.Logging.WithCaller = o.v.GetBool("with-caller")
	}
}

// initLogging configures the global logger. The full-screen chat must not
// write to stderr, so it logs to a file only.
func (o *rootOptions) initLogging(fullScreen bool) error {
	file, err := o.cfg.LogFile()
	if err != nil {
		return err
	}
	if fullScreen && file == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		file = filepath.Join(dir, "arda.log")
	}
	return logging.Init(logging.Config{
		WithCaller: o.cfg.Logging.WithCaller,
		Level:      o.cfg.Logging.Level,
		Format:     o.cfg.Logging.Format,
		File:       file,
		Quiet:      fullScreen,
	})
}

// app builds the App on first use.
func (o *rootOptions) app() (*App, error) {
	if o.application != nil {
		return o.application, nil
	}
	a, err := NewApp(o.cfg)
	if err != nil {
		return nil, err
	}
	o.application = a
	return a, nil
}

// close releases the App and flushes traces.
func (o *rootOptions) close() {
	if o.application != nil {
		if err := o.application.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close conversation store")
		}
		o.application = nil
	}
	if o.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
		o.shutdown = nil
	}
}
