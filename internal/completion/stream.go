// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marcusdavidalo/arda/internal/model"
)

// CompleteStream behaves like Complete but uses the streaming endpoint,
// calling onDelta for every non-empty fragment. The returned turn holds the
// concatenated content. onDelta may be nil.
func (c *Client) CompleteStream(ctx context.Context, history []model.Turn, text string, onDelta func(delta string)) (model.Turn, error) {
	ctx, span := c.startSpan(ctx, "completion.CompleteStream", history)
	defer span.End()

	if !c.configured {
		return model.Turn{}, recordErr(span, ErrNotConfigured)
	}

	start := time.Now()
	stream, err := c.api.CreateChatCompletionStream(ctx, NewRequest(history, text, true))
	if err != nil {
		err = classify("chat completion stream", err)
		log.Warn().Err(err).Msg("completion stream failed to start")
		return model.Turn{}, recordErr(span, err)
	}
	defer stream.Close()

	var sb strings.Builder
	chunks := 0
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = classify("chat completion stream", err)
			log.Warn().Err(err).Int("chunks", chunks).Msg("completion stream interrupted")
			return model.Turn{}, recordErr(span, err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		chunks++
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}

	span.SetAttributes(attribute.Int("completion.chunks", chunks))
	log.Debug().Int("chunks", chunks).Dur("elapsed", time.Since(start)).Msg("completion stream finished")

	return model.AssistantTurn(sb.String()), nil
}
