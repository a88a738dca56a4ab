// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/marcusdavidalo/arda/internal/model"
)

// Pending is an exchange running in the background.
type Pending struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	turn model.Turn
	err  error
}

// SendAsync starts Send in a goroutine. Input errors, including ErrBusy,
// are reported by Result on an already finished Pending.
func (a *Assistant) SendAsync(ctx context.Context, text string) *Pending {
	return a.sendAsync(ctx, text, nil)
}

// SendStreamAsync starts SendStream in a goroutine. onDelta runs on that
// goroutine.
func (a *Assistant) SendStreamAsync(ctx context.Context, text string, onDelta func(string)) *Pending {
	return a.sendAsync(ctx, text, onDelta)
}

func (a *Assistant) sendAsync(ctx context.Context, text string, onDelta func(string)) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	text, err := Normalize(text)
	if err == nil && !a.busy.CompareAndSwap(false, true) {
		err = ErrBusy
	}
	if err != nil {
		p.finish(model.Turn{}, err)
		return p
	}

	go func() {
		turn, err := a.exchange(ctx, text, onDelta)
		a.busy.Store(false)
		p.finish(turn, err)
	}()
	return p
}

func (p *Pending) finish(turn model.Turn, err error) {
	p.once.Do(func() {
		p.turn = turn
		p.err = err
		p.cancel()
		close(p.done)
	})
}

// Cancel aborts the request. It is safe to call more than once and after
// completion.
func (p *Pending) Cancel() {
	p.cancel()
}

// Done is closed when the exchange has finished and been persisted.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result waits for the exchange and returns what Send would have returned.
func (p *Pending) Result() (model.Turn, error) {
	<-p.done
	return p.turn, p.err
}
