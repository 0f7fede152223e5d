package history

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"labchat/internal/app/db"
	"labchat/internal/app/message"
)

const (
	pgInsertMessage = `
INSERT INTO chat_messages (id, room_key, sender, body, attachment_url, attachment_name, kind, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	pgRecentMessages = `
SELECT id, room_key, sender, body, attachment_url, attachment_name, kind, created_at
FROM chat_messages
WHERE room_key = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
)

// PostgresStore keeps history in the chat_messages table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, msg message.Message) error {
	var url, name pgtype.Text
	if msg.Attachment != nil {
		url = pgtype.Text{String: msg.Attachment.URL, Valid: true}
		name = pgtype.Text{String: msg.Attachment.Name, Valid: true}
	}

	_, err := s.pool.Exec(ctx, pgInsertMessage,
		msg.ID, msg.RoomKey, msg.Sender, msg.Body, url, name, string(msg.Kind), msg.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		return []message.Message{}, nil
	}

	rows, err := s.pool.Query(ctx, pgRecentMessages, roomKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		var (
			msg       message.Message
			kind      string
			url, name pgtype.Text
		)
		if err := row.Scan(&msg.ID, &msg.RoomKey, &msg.Sender, &msg.Body, &url, &name, &kind, &msg.CreatedAt); err != nil {
			return message.Message{}, err
		}
		msg.Kind = message.Kind(kind)
		msg.CreatedAt = msg.CreatedAt.UTC()
		if url.Valid {
			msg.Attachment = &message.Attachment{URL: url.String, Name: name.String}
		}
		return msg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent messages: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}
