// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the active conversation and the saved collection.
//
// The Manager owns the in-memory copy of the collection loaded from a
// storage.Store and writes the whole collection back on every change.
// Saved conversations are addressed by ID for Load and Update, and by
// position in store order for Delete and Rename.
//
// # Usage
//
//	mgr := session.NewManager(store)
//	conv := mgr.Active().WithTurn(model.UserTurn("hello"))
//	err := mgr.Update(conv)
//
//	for i, c := range mgr.Conversations() {
//	    fmt.Println(i, c.Title())
//	}
//	err = mgr.Rename(0, "Greetings")
package session
