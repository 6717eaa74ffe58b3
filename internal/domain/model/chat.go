package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxChatBodyLen = 4000

// ChatMessage is one message in a customer-support conversation.
// Conversations are keyed by the customer's user ID; staff replies
// carry the same conversation key with FromStaff set.
type ChatMessage struct {
	ID             string    `json:"id"              db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id"       db:"sender_id"`
	FromStaff      bool      `json:"from_staff"      db:"from_staff"`
	Body           string    `json:"body"            db:"body"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}

// PostChatMessageRequest represents parameters to append a chat message.
type PostChatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

// Validate validates PostChatMessageRequest.
func (r *PostChatMessageRequest) Validate() error {
	if strings.TrimSpace(r.ConversationID) == "" {
		return errors.New("conversation_id is required")
	}
	body := strings.TrimSpace(r.Body)
	if body == "" {
		return errors.New("body is required and cannot be empty")
	}
	if utf8.RuneCountInString(body) > maxChatBodyLen {
		return errors.New("body cannot exceed 4000 characters")
	}
	return nil
}

// ChatConversation summarises a conversation for the staff inbox.
type ChatConversation struct {
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	LastBody       string    `json:"last_body"       db:"last_body"`
	LastAt         time.Time `json:"last_at"         db:"last_at"`
	MessageCount   int64     `json:"message_count"   db:"message_count"`
}
