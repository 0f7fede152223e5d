package history

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"labchat/internal/app/message"
)

// BadgerStore keeps history in an embedded Badger database.
//
// Keys are msg:{hex(roomKey)}:{createdAt as 19-digit unix nanos}:{id}, so the keys of one
// room sort by time and a reverse prefix scan yields the newest messages first.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens the Badger database at path with badger's own logging silenced.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

func roomPrefix(roomKey string) []byte {
	return []byte("msg:" + hex.EncodeToString([]byte(roomKey)) + ":")
}

func messageKey(msg message.Message) []byte {
	return fmt.Appendf(roomPrefix(msg.RoomKey), "%019d:%s", msg.CreatedAt.UnixNano(), msg.ID)
}

func (s *BadgerStore) Append(_ context.Context, msg message.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message %s: %w", msg.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), data)
	})
}

func (s *BadgerStore) Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		return []message.Message{}, nil
	}

	prefix := roomPrefix(roomKey)
	msgs := make([]message.Message, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// 0xff sorts after every digit, so the seek lands on the newest key of the room.
		seek := append(slices.Clone(prefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(msgs) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var msg message.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(msgs)
	return msgs, nil
}
