// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// # Key Types
//
//   - Conversation: a named, ordered sequence of turns with a stable ID
//   - Turn: one message tagged with its originating role
//   - Role: turn role enumeration (system, user, assistant)
//
// Conversations are values. Appending a turn returns a new Conversation
// that shares nothing mutable with the original, so a copy handed to the
// session manager can never be changed behind its back.
//
// # Usage
//
//	conv := model.NewConversation()
//	conv = conv.WithTurn(model.UserTurn("Hello!"))
//	fmt.Println(conv.Title())
package model
