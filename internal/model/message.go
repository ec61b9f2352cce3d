package model

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one entry of the assistant transcript
type ChatMessage struct {
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	IsThinking bool      `json:"isThinking,omitempty"`
}

// Greeting is the first message of every new transcript
const Greeting = "Hello! I am GrantAxiom. I can help refine your proposal or search for the latest literature."
