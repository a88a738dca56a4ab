// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Arda"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in a conversation. Turns are never modified after
// creation; the order of turns within a conversation is significant.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Error marks a turn that reports a failed request. Error turns are
	// shown and persisted but never sent back to the completion endpoint.
	Error bool `json:"error,omitempty"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// UserTurn creates a user turn.
func UserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}

// SystemTurn creates a system turn.
func SystemTurn(content string) Turn {
	return NewTurn(RoleSystem, content)
}

// ErrorTurn creates an assistant-side turn describing err.
func ErrorTurn(err error) Turn {
	t := NewTurn(RoleAssistant, "Sorry, something went wrong: "+err.Error())
	t.Error = true
	return t
}

// Replayable reports whether the turn belongs in a request history.
func (t Turn) Replayable() bool {
	return !t.Error && t.Role.Valid()
}
