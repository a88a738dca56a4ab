// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant replies into terminal output.
//
// Prose goes through glamour. Fenced code blocks are drawn separately in a
// bordered, chroma-highlighted box carrying a "[copy N]" badge and a note
// reminding the reader that the code was generated. Blocks are numbered
// from 1 in reply order, matching CodeBlocks and CopyCodeBlock.
package render
