package history

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"labchat/internal/app/db"
	"labchat/internal/app/message"
)

const (
	sqliteInsertMessage = `
INSERT INTO chat_messages (id, room_key, sender, body, attachment_url, attachment_name, kind, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteRecentMessages = `
SELECT id, room_key, sender, body, attachment_url, attachment_name, kind, created_at
FROM chat_messages
WHERE room_key = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`
)

// SQLiteStore keeps history in a local SQLite file. created_at is stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(sqlDB *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: sqlDB}
}

func (s *SQLiteStore) Append(ctx context.Context, msg message.Message) error {
	var url, name sql.NullString
	if msg.Attachment != nil {
		url = sql.NullString{String: msg.Attachment.URL, Valid: true}
		name = sql.NullString{String: msg.Attachment.Name, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, sqliteInsertMessage,
		msg.ID, msg.RoomKey, msg.Sender, msg.Body, url, name, string(msg.Kind), msg.CreatedAt.UnixNano())
	if err != nil {
		if db.IsSQLiteConstraint(err) {
			return nil
		}
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error) {
	// SQLite reads LIMIT -1 as no limit.
	if limit <= 0 {
		return []message.Message{}, nil
	}

	rows, err := s.db.QueryContext(ctx, sqliteRecentMessages, roomKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []message.Message
	for rows.Next() {
		var (
			msg       message.Message
			kind      string
			url, name sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.RoomKey, &msg.Sender, &msg.Body, &url, &name, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Kind = message.Kind(kind)
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		if url.Valid {
			msg.Attachment = &message.Attachment{URL: url.String, Name: name.String}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}
