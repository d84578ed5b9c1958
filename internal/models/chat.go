package models

import (
	"time"
)

// Role distinguishes who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message within a session. Turns are append-only; their order
// is the conversation history contract.
type Turn struct {
	Role      Role         `json:"role"`
	Text      string       `json:"text"`
	Grounding []PassageRef `json:"grounding,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Session holds an ordered conversation. Created on first message, removed
// only by an explicit clear.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Turns     []Turn    `json:"turns"`
}
