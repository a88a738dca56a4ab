// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Error variables for common endpoint failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("completion API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// classify maps a go-openai error onto the package sentinels. Errors that
// match no sentinel are wrapped with op and returned.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, op)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if sentinel := sentinelFor(apiErr.HTTPStatusCode); sentinel != nil {
			return errors.Wrap(sentinel, apiErr.Message)
		}
		return errors.Wrapf(err, "%s: status %d", op, apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if sentinel := sentinelFor(reqErr.HTTPStatusCode); sentinel != nil {
			return sentinel
		}
		return errors.Wrapf(err, "%s: status %d", op, reqErr.HTTPStatusCode)
	}

	return errors.Wrap(err, op)
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}
