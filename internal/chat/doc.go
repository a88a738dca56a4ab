// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs one exchange with the assistant: validate the input,
// record the user turn, ask the completion endpoint, record the reply (or
// an error turn when the request fails) and persist after each step.
//
// At most one exchange is in flight per Assistant. SendAsync returns a
// Pending handle whose Cancel aborts the HTTP request; a cancelled
// exchange is recorded as an error turn.
package chat
