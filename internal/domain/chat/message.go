// Package chat holds conversation types for document question answering.
package chat

import (
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a question from the user.
	RoleUser Role = "user"
	// RoleAssistant is a previous model answer.
	RoleAssistant Role = "assistant"
	// RoleSystem is an instruction message.
	RoleSystem Role = "system"
)

// MaxQueryLength bounds a single question in characters.
const MaxQueryLength = 4000

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Validate checks role and content.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("message content is required")
	}
	return nil
}

// Question is a chat turn scoped to one document.
type Question struct {
	DocumentID string
	Query      string
	History    []Message
}

// FromMessages splits a transcript into history and the final user query.
func FromMessages(documentID string, msgs []Message) (Question, error) {
	if len(msgs) == 0 {
		return Question{}, fmt.Errorf("at least one message is required")
	}
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return Question{}, fmt.Errorf("message %d: %w", i, err)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != RoleUser {
		return Question{}, fmt.Errorf("last message must come from the user")
	}
	return Question{
		DocumentID: documentID,
		Query:      last.Content,
		History:    msgs[:len(msgs)-1],
	}, nil
}

// Validate checks the query.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if len([]rune(q.Query)) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d characters)", MaxQueryLength)
	}
	return nil
}

// ConversationHistory keeps only user and assistant turns.
// Client-supplied system messages never reach the model.
func (q Question) ConversationHistory() []Message {
	out := make([]Message, 0, len(q.History))
	for _, m := range q.History {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}
