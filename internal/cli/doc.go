// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the arda command line.
//
// Commands:
//
//	arda                        full-screen chat (same as "arda chat")
//	arda chat [--plain]         interactive chat
//	arda ask [--search] msg     one question, one reply
//	arda search query           web search
//	arda conversations ...      list, show, rename, delete, export
//	arda config [show|path|init]
//
// Persistent flags --log-level, --log-format, --log-file, --with-caller and
// --config are bound through viper, so ARDA_LOG_LEVEL and friends work too.
package cli
