package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bulkhaus/bulk-ui-api/internal/data/pgxutil"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const chatMessageColumns = `id, conversation_id, sender_id, from_staff, body, created_at`

// ChatRepo provides database operations for support-chat messages.
// Message inserts fire a pg_notify on a per-conversation channel so
// WaitForMessage can block without polling.
type ChatRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewChatRepo creates a new ChatRepo with real time provider.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewChatRepoWithTimeProvider creates a new ChatRepo with a custom time provider (useful for tests).
func NewChatRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ChatRepo {
	return &ChatRepo{DB: db, timeProvider: tp}
}

func chatChannel(conversationID string) string {
	return "chat_msg_" + conversationID
}

// Insert appends a message to a conversation and notifies listeners.
func (r *ChatRepo) Insert(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	if msg == nil {
		return nil, errors.New("chat message is required")
	}
	if strings.TrimSpace(msg.ConversationID) == "" {
		return nil, errors.New("conversation id is required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, errors.New("message body is required")
	}

	var out model.ChatMessage
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, `
				INSERT INTO chat_messages (conversation_id, sender_id, from_staff, body, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING `+chatMessageColumns,
				msg.ConversationID,
				msg.SenderID,
				msg.FromStaff,
				msg.Body,
				r.timeProvider.Now().UTC(),
			)
			if err != nil {
				return err
			}
			out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.ChatMessage])
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`,
				chatChannel(msg.ConversationID), out.ID)
			return err
		},
	})
	if txErr != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", txErr)
	}
	return &out, nil
}

// ListSince returns messages in a conversation created strictly after
// since, oldest first.
func (r *ChatRepo) ListSince(
	ctx context.Context,
	conversationID string,
	since time.Time,
	limit int,
) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rowsOut []model.ChatMessage
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+chatMessageColumns+`
			FROM chat_messages
			WHERE conversation_id = $1 AND created_at > $2
			ORDER BY created_at ASC, id ASC
			LIMIT $3`,
			conversationID, since, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.ChatMessage])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	res := make([]*model.ChatMessage, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ListConversations returns conversation summaries for the back-office
// inbox, most recently active first.
func (r *ChatRepo) ListConversations(ctx context.Context, limit, offset int) ([]*model.ChatConversation, error) {
	if limit <= 0 {
		limit = 50
	}
	offset = max(offset, 0)

	var rowsOut []model.ChatConversation
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT * FROM (
				SELECT DISTINCT ON (conversation_id)
				       conversation_id,
				       body AS last_body,
				       created_at AS last_at,
				       COUNT(*) OVER (PARTITION BY conversation_id) AS message_count
				FROM chat_messages
				ORDER BY conversation_id, created_at DESC
			) conversations
			ORDER BY last_at DESC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.ChatConversation])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	res := make([]*model.ChatConversation, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// WaitForMessage blocks until a message lands in the conversation or
// ctx is done. Callers should re-query ListSince after it returns.
func (r *ChatRepo) WaitForMessage(ctx context.Context, conversationID string) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := chatChannel(conversationID)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}
