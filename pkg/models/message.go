package models

import (
	"fmt"
	"strings"
)

// Role identifies who authored a conversation turn
type Role string

const (
	// RoleSystem carries instructions for the model
	RoleSystem Role = "system"
	// RoleUser is the human side of the conversation
	RoleUser Role = "user"
	// RoleAssistant is the model's reply
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the wire roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ParseRole converts a wire or display name into a Role.
// "ai" is accepted as an alias for assistant.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user":
		return RoleUser, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Message is a single conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system turn
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user turn
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant turn
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
