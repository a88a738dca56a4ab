// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the arda color palette and lipgloss theme.
//
// All colors are lipgloss.AdaptiveColor values, so light and dark terminals
// get their own variant without configuration.
package styles
