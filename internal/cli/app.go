// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/completion"
	"github.com/marcusdavidalo/arda/internal/config"
	"github.com/marcusdavidalo/arda/internal/render"
	"github.com/marcusdavidalo/arda/internal/search"
	"github.com/marcusdavidalo/arda/internal/session"
	"github.com/marcusdavidalo/arda/internal/storage"
)

// App is the wired application: store, session manager, adapters and the
// assistant tying them together.
type App struct {
	Config     *config.Config
	Store      *storage.ConversationStore
	Sessions   *session.Manager
	Completion *completion.Client
	Search     *search.Client
	Assistant  *chat.Assistant
}

// NewApp opens the configured storage backend and builds the adapters.
func NewApp(cfg *config.Config) (*App, error) {
	var dir string
	if !strings.EqualFold(cfg.Storage.Backend, storage.BackendMemory) {
		d, err := cfg.DataDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	slot, err := storage.OpenSlot(storage.SlotConfig{
		Backend: cfg.Storage.Backend,
		Dir:     dir,
	})
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	store := storage.NewConversationStore(slot)
	sessions := session.NewManager(store)

	comp := completion.NewClient(completion.Config{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Timeout: seconds(cfg.Completion.TimeoutSecs),
	})
	if !comp.IsConfigured() {
		log.Warn().Msg("No completion API key configured; set ARDA_GROQ_API_KEY or completion.api_key")
	}

	srch := search.NewClient(search.Config{
		APIKey:        cfg.Search.APIKey,
		EngineID:      cfg.Search.EngineID,
		BaseURL:       cfg.Search.BaseURL,
		Timeout:       seconds(cfg.Search.TimeoutSecs),
		RatePerSecond: cfg.Search.RatePerSecond,
		Burst:         cfg.Search.Burst,
	})

	log.Debug().
		Str("backend", cfg.Storage.Backend).
		Str("dir", dir).
		Int("conversations", sessions.Len()).
		Msg("Application ready")

	return &App{
		Config:     cfg,
		Store:      store,
		Sessions:   sessions,
		Completion: comp,
		Search:     srch,
		Assistant:  chat.NewAssistant(sessions, comp, srch),
	}, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.Store.Close()
}

// MarkdownStyle maps the ui.theme setting to a glamour style. "auto"
// returns "" so the renderer detects it.
func (a *App) MarkdownStyle() string {
	switch strings.ToLower(a.Config.UI.Theme) {
	case "dark":
		return render.StyleDark
	case "light":
		return render.StyleLight
	case "notty":
		return render.StyleNoTTY
	default:
		return ""
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
