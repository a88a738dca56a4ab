// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the full-screen chat interface.
//
// The screen is a single pane: a header with the conversation title, the
// scrolling transcript, a status line and the input box with its n/12000
// counter. While a reply is pending the input is disabled and the status
// line shows "Arda is typing...".
//
// Keys:
//
//	Enter       send
//	Alt+Enter   newline
//	Ctrl+N      new conversation
//	Ctrl+Y      copy the last code block of the last reply
//	Esc         cancel the pending reply
//	Ctrl+C      quit
package ui
