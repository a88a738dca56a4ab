// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion talks to the hosted chat completion endpoint.
//
// Every request is built the same way: the fixed Arda persona as a system
// message, the prior history with error turns removed, the fixed greeting
// as an assistant message, and finally the new user message. The endpoint
// is OpenAI-compatible (Groq by default) and is reached through go-openai.
//
// Failures are returned to the caller unchanged in meaning. HTTP failures
// are classified into the sentinels ErrAuthFailed, ErrRateLimited and
// ErrModelNotFound so the caller can show a useful message. There is no
// retry.
//
// # Usage
//
//	client := completion.NewClient(completion.Config{APIKey: key})
//	turn, err := client.Complete(ctx, conv.History(), "How do I sort a map?")
package completion
