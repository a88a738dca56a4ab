// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/search"
)

// MaxInputLength is the longest accepted message, in characters.
const MaxInputLength = 12000

// Errors returned before any request is made.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds 12000 characters")
	ErrBusy           = errors.New("a reply is already pending")
)

// ErrCancelled is recorded when the user aborts a pending request.
var ErrCancelled = errors.New("request cancelled")

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Completer produces the assistant reply for history plus a new message.
type Completer interface {
	Complete(ctx context.Context, history []model.Turn, text string) (model.Turn, error)
}

// StreamCompleter is a Completer that can also deliver the reply in pieces.
type StreamCompleter interface {
	Completer
	CompleteStream(ctx context.Context, history []model.Turn, text string, onDelta func(string)) (model.Turn, error)
}

// Searcher runs a web search. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Item
}

// Sessions holds the active conversation and persists updates.
type Sessions interface {
	Active() model.Conversation
	Update(conv model.Conversation) error
}

// =============================================================================
// ASSISTANT
// =============================================================================

// Assistant ties the session manager to the completion and search adapters.
type Assistant struct {
	sessions  Sessions
	completer Completer
	searcher  Searcher

	busy atomic.Bool
}

// NewAssistant creates an assistant. searcher may be nil.
func NewAssistant(sessions Sessions, completer Completer, searcher Searcher) *Assistant {
	return &Assistant{
		sessions:  sessions,
		completer: completer,
		searcher:  searcher,
	}
}

// Busy reports whether an exchange is in flight.
func (a *Assistant) Busy() bool {
	return a.busy.Load()
}

// Send runs one exchange on the active conversation and returns the turn
// appended as the reply.
//
// Input problems return ErrEmptyMessage, ErrMessageTooLong or ErrBusy and
// change nothing. A failed request still appends and returns an error turn,
// together with the request error.
func (a *Assistant) Send(ctx context.Context, text string) (model.Turn, error) {
	return a.send(ctx, text, nil)
}

// SendStream is Send with the reply delivered to onDelta as it arrives,
// when the completer supports streaming.
func (a *Assistant) SendStream(ctx context.Context, text string, onDelta func(string)) (model.Turn, error) {
	return a.send(ctx, text, onDelta)
}

func (a *Assistant) send(ctx context.Context, text string, onDelta func(string)) (model.Turn, error) {
	text, err := Normalize(text)
	if err != nil {
		return model.Turn{}, err
	}
	if !a.busy.CompareAndSwap(false, true) {
		return model.Turn{}, ErrBusy
	}
	defer a.busy.Store(false)

	return a.exchange(ctx, text, onDelta)
}

func (a *Assistant) exchange(ctx context.Context, text string, onDelta func(string)) (model.Turn, error) {
	conv := a.sessions.Active()
	history := conv.History()

	conv = conv.WithTurn(model.UserTurn(text))
	a.persist(conv)

	reply, err := a.complete(ctx, history, text, onDelta)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			err = ErrCancelled
		}
		log.Warn().Err(err).Str("conversation", conv.ID).Msg("completion failed")
		reply = model.ErrorTurn(err)
	}

	conv = conv.WithTurn(reply)
	a.persist(conv)
	return reply, err
}

func (a *Assistant) complete(ctx context.Context, history []model.Turn, text string, onDelta func(string)) (model.Turn, error) {
	if onDelta != nil {
		if sc, ok := a.completer.(StreamCompleter); ok {
			return sc.CompleteStream(ctx, history, text, onDelta)
		}
	}
	return a.completer.Complete(ctx, history, text)
}

// persist saves conv. Storage failures are logged and do not interrupt the
// exchange.
func (a *Assistant) persist(conv model.Conversation) {
	if err := a.sessions.Update(conv); err != nil {
		log.Error().Err(err).Str("conversation", conv.ID).Msg("could not persist conversation")
	}
}

// Search passes query to the search adapter. Without one it returns an
// empty list.
func (a *Assistant) Search(ctx context.Context, query string) []search.Item {
	if a.searcher == nil {
		return []search.Item{}
	}
	return a.searcher.Search(ctx, query)
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

// Normalize converts text to NFC. Whitespace is kept so pasted code keeps
// its indentation; it only decides emptiness. It returns ErrEmptyMessage for
// blank input and ErrMessageTooLong above MaxInputLength characters.
func Normalize(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	text = norm.NFC.String(text)
	if utf8.RuneCountInString(text) > MaxInputLength {
		return "", ErrMessageTooLong
	}
	return text, nil
}
