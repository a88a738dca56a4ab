// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search queries the Google Custom Search JSON API.
//
// Search never returns an error. Missing credentials, network failures,
// non-2xx responses and undecodable bodies are logged and produce an empty
// result list. A local rate limiter delays requests; the wait ends early
// only when the context does.
package search
