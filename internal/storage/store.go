// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/marcusdavidalo/arda/internal/model"
)

// DefaultSlotName is the key under which the collection is stored.
const DefaultSlotName = "conversations"

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the durable home of the conversation collection.
type Store interface {
	// Load returns the saved collection, or an empty one if nothing usable
	// is stored. It never fails.
	Load() []model.Conversation

	// Save replaces the stored collection with convs.
	Save(convs []model.Conversation) error
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore stores the collection as a JSON array inside a Slot.
type ConversationStore struct {
	slot Slot
}

// NewConversationStore creates a store backed by slot.
func NewConversationStore(slot Slot) *ConversationStore {
	return &ConversationStore{slot: slot}
}

// Load reads and decodes the slot. Absent or corrupt data yields an empty
// collection and a logged warning.
func (s *ConversationStore) Load() []model.Conversation {
	data, err := s.slot.Read()
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			log.Warn().Err(err).Msg("could not read conversations, starting empty")
		}
		return []model.Conversation{}
	}
	if len(data) == 0 {
		return []model.Conversation{}
	}

	var convs []model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		log.Warn().Err(err).Msg("stored conversations are corrupt, starting empty")
		return []model.Conversation{}
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	for i := range convs {
		if convs[i].Messages == nil {
			convs[i].Messages = []model.Turn{}
		}
	}
	return convs
}

// Save encodes convs and overwrites the slot.
func (s *ConversationStore) Save(convs []model.Conversation) error {
	if convs == nil {
		convs = []model.Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.slot.Write(data); err != nil {
		return fmt.Errorf("write conversations: %w", err)
	}
	log.Debug().Int("conversations", len(convs)).Int("bytes", len(data)).Msg("conversations saved")
	return nil
}

// Close releases the underlying slot.
func (s *ConversationStore) Close() error {
	return s.slot.Close()
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
