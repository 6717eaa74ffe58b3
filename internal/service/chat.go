package service

import (
	"context"
	"errors"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// ChatServiceOptions groups dependencies for ChatService.
type ChatServiceOptions struct {
	Chat core.ChatRepository
}

// ChatService manages support conversations. A conversation ID is the
// customer's user ID: one thread per customer, staff reply into it.
type ChatService struct {
	chat core.ChatRepository
}

// NewChatService constructs a new ChatService.
func NewChatService(opts ChatServiceOptions) *ChatService {
	return &ChatService{chat: opts.Chat}
}

// Post appends a message. Customers may only post into their own
// conversation; staff post anywhere.
func (s *ChatService) Post(
	ctx context.Context,
	sender PostSender,
	req *model.PostChatMessageRequest,
) (*model.ChatMessage, error) {
	if req == nil {
		return nil, errors.New("post chat message request is required")
	}
	if !sender.Staff {
		// Customers always post into their own thread, whatever the
		// request claims.
		req.ConversationID = sender.UserID
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.chat.Insert(ctx, &model.ChatMessage{
		ConversationID: req.ConversationID,
		SenderID:       sender.UserID,
		FromStaff:      sender.Staff,
		Body:           req.Body,
	})
}

// PostSender identifies who is posting.
type PostSender struct {
	UserID string
	Staff  bool
}

// History returns messages after since, oldest first.
func (s *ChatService) History(
	ctx context.Context,
	conversationID string,
	since time.Time,
) ([]*model.ChatMessage, error) {
	return s.chat.ListSince(ctx, conversationID, since, 0)
}

// Wait blocks until a new message lands in the conversation or ctx is
// done. The SSE handler loops: Wait, then History from its cursor.
func (s *ChatService) Wait(ctx context.Context, conversationID string) error {
	return s.chat.WaitForMessage(ctx, conversationID)
}

// Conversations lists conversation summaries for the staff inbox.
func (s *ChatService) Conversations(ctx context.Context, limit, offset int) ([]*model.ChatConversation, error) {
	return s.chat.ListConversations(ctx, limit, offset)
}
