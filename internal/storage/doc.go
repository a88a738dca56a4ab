// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation collection for arda.
//
// The whole collection lives in one named slot as a JSON array. A Slot is
// the raw byte container (file, bbolt, sqlite or memory); ConversationStore
// encodes and decodes the collection on top of it.
//
// # Key Types
//
//   - Store: Load/Save capability used by the session manager
//   - ConversationStore: JSON codec over a Slot
//   - Slot: FileSlot, BoltSlot, SQLiteSlot, MemorySlot
//
// # Usage
//
//	slot, err := storage.OpenSlot(storage.SlotConfig{Backend: "file", Dir: dataDir})
//	store := storage.NewConversationStore(slot)
//	convs := store.Load()
//	err = store.Save(convs)
//
// Load never fails: a missing or corrupt slot yields an empty collection.
package storage
