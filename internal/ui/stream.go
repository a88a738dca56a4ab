// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/model"
)

// streamRefresh is how often a streaming reply is redrawn.
const streamRefresh = 50 * time.Millisecond

// streamBuffer collects streamed fragments. Fragments arrive on the request
// goroutine and are read by the Update loop.
type streamBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *streamBuffer) write(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sb.WriteString(s)
}

func (b *streamBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// =============================================================================
// MESSAGES
// =============================================================================

// replyMsg carries the finished exchange.
type replyMsg struct {
	turn model.Turn
	err  error
}

// streamTickMsg asks for a redraw of the partial reply.
type streamTickMsg struct{}

// noticeClearMsg clears a notice set at the given generation.
type noticeClearMsg struct {
	gen int
}

func waitForReply(p *chat.Pending) tea.Cmd {
	return func() tea.Msg {
		turn, err := p.Result()
		return replyMsg{turn: turn, err: err}
	}
}

func streamTick() tea.Cmd {
	return tea.Tick(streamRefresh, func(time.Time) tea.Msg {
		return streamTickMsg{}
	})
}
