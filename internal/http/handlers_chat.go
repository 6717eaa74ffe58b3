package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const defaultConversationLimit = 50

// ChatHandlers provides HTTP handlers for support chat, including the
// SSE live feed.
type ChatHandlers struct {
	Svc *service.ChatService
}

// Post appends a message to a conversation.
// POST /api/chat/messages.
func (h *ChatHandlers) Post(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.PostChatMessageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	msg, err := h.Svc.Post(r.Context(), service.PostSender{
		UserID: session.UserID,
		Staff:  staffSession(session),
	}, &req)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "post_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusCreated, msg)
}

// History returns conversation messages after the since cursor.
// GET /api/chat/messages?conversation_id=&since=.
func (h *ChatHandlers) History(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.conversationFor(w, r)
	if !ok {
		return
	}

	since, ok := parseSinceQuery(w, r)
	if !ok {
		return
	}

	messages, err := h.Svc.History(r.Context(), conversationID, since)
	if err != nil {
		writeServiceError(w, err, "history_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// Stream pushes conversation messages over SSE. The client reconnects
// with a since cursor to resume.
// GET /api/chat/stream?conversation_id=&since=.
func (h *ChatHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.conversationFor(w, r)
	if !ok {
		return
	}
	since, ok := parseSinceQuery(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("response writer does not support streaming"),
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	cursor := since
	for {
		messages, err := h.Svc.History(ctx, conversationID, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			writeSSEEvent(w, flusher, "error", map[string]string{"message": "history fetch failed"})
			return
		}
		for _, msg := range messages {
			writeSSEEvent(w, flusher, "message", msg)
			if msg.CreatedAt.After(cursor) {
				cursor = msg.CreatedAt
			}
		}

		if err := h.Svc.Wait(ctx, conversationID); err != nil {
			// Client gone or server shutting down.
			return
		}
	}
}

// Conversations lists conversation summaries for the staff inbox.
// GET /api/chat/conversations.
func (h *ChatHandlers) Conversations(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultConversationLimit, maxProductLimit)
	conversations, err := h.Svc.Conversations(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// conversationFor resolves which conversation the caller may read.
// Customers are pinned to their own thread; staff pick via query param.
func (h *ChatHandlers) conversationFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := GetSessionFromContext(r.Context())
	if !staffSession(session) {
		return session.UserID, true
	}

	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("conversation_id is required"),
		})
		return "", false
	}
	return conversationID, true
}

func parseSinceQuery(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return time.Time{}, true
	}
	since, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("since must be an RFC3339 timestamp"),
		})
		return time.Time{}, false
	}
	return since, true
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(raw) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}
