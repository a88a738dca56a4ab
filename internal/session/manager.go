// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/storage"
)

// ErrIndexOutOfRange is returned by positional operations given an index
// outside the collection.
var ErrIndexOutOfRange = errors.New("conversation index out of range")

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the active conversation and the saved collection.
// It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	store  storage.Store
	convs  []model.Conversation
	active model.Conversation

	// newID generates conversation identifiers; replaced in tests.
	newID func() string
}

// NewManager loads the collection from store and starts a fresh, unsaved
// conversation.
func NewManager(store storage.Store) *Manager {
	return newManager(store, model.NewID)
}

func newManager(store storage.Store, newID func() string) *Manager {
	m := &Manager{
		store: store,
		convs: store.Load(),
		newID: newID,
	}
	m.active = m.freshLocked()

	log.Debug().Int("conversations", len(m.convs)).Msg("session manager ready")
	return m
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

// StartNew replaces the active conversation with an empty one whose ID is
// not used by any saved conversation. Nothing is persisted until Update.
func (m *Manager) StartNew() model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = m.freshLocked()
	return m.active.Clone()
}

// Load makes the saved conversation with the given ID active. An unknown ID
// leaves the state untouched and returns false.
func (m *Manager) Load(id string) (model.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOfLocked(id)
	if i < 0 {
		return model.Conversation{}, false
	}
	m.active = m.convs[i].Clone()
	return m.active.Clone(), true
}

// Update makes conv active and upserts it into the collection by ID, then
// saves the whole collection.
func (m *Manager) Update(conv model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv = conv.Clone()
	m.active = conv

	if i := m.indexOfLocked(conv.ID); i >= 0 {
		m.convs[i] = conv
	} else {
		m.convs = append(m.convs, conv)
	}
	return m.saveLocked()
}

// Active returns a copy of the active conversation.
func (m *Manager) Active() model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Clone()
}

// =============================================================================
// POSITIONAL OPERATIONS
// =============================================================================

// Delete removes the saved conversation at index and saves the collection.
// Deleting the active conversation starts a new one.
func (m *Manager) Delete(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.convs) {
		return fmt.Errorf("delete %d: %w", index, ErrIndexOutOfRange)
	}

	removed := m.convs[index]
	m.convs = append(m.convs[:index:index], m.convs[index+1:]...)
	if removed.ID == m.active.ID {
		m.active = m.freshLocked()
	}
	return m.saveLocked()
}

// Rename sets the display name of the saved conversation at index and saves
// the collection.
func (m *Manager) Rename(index int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.convs) {
		return fmt.Errorf("rename %d: %w", index, ErrIndexOutOfRange)
	}

	m.convs[index] = m.convs[index].WithName(name)
	if m.convs[index].ID == m.active.ID {
		m.active = m.convs[index].Clone()
	}
	return m.saveLocked()
}

// =============================================================================
// COLLECTION ACCESS
// =============================================================================

// Conversations returns a copy of the saved collection in store order.
func (m *Manager) Conversations() []model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Conversation, len(m.convs))
	for i, c := range m.convs {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of saved conversations.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}

// IndexOf returns the position of the saved conversation with id, or -1.
func (m *Manager) IndexOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(id)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Manager) indexOfLocked(id string) int {
	for i := range m.convs {
		if m.convs[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) freshLocked() model.Conversation {
	conv := model.NewConversation()
	conv.ID = m.newID()
	for m.indexOfLocked(conv.ID) >= 0 {
		conv.ID = m.newID()
	}
	return conv
}

func (m *Manager) saveLocked() error {
	if err := m.store.Save(m.convs); err != nil {
		log.Error().Err(err).Msg("failed to save conversations")
		return fmt.Errorf("save conversations: %w", err)
	}
	return nil
}
