package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageRepository persists messages in BadgerDB.
//
// The primary key is "msg:{room_id}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padding makes lexicographical order match
//     chronological order, so a prefix scan walks the room timeline.
//  2. The UUID suffix disambiguates two messages persisted at the same
//     nanosecond.
//
// A secondary index "msgid:{uuid}" -> primary key supports the
// edit/delete-by-id path. Deletes are soft: the record keeps its slot
// with DeletedAt set, so replies referencing it still resolve.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

type storedMessage struct {
	ID         string     `json:"id"`
	Room       string     `json:"room"`
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content"`
	Type       string     `json:"type"`
	ReplyTo    *string    `json:"reply_to,omitempty"`
	CreatedAt  int64      `json:"created_at"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

func primaryKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", msg.Room, msg.CreatedAt.UnixNano(), msg.ID))
}

func indexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msgid:%s", id))
}

func (m *MessageRepository) Append(_ context.Context, msg domain.Message) error {
	bytes, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}
	key := primaryKey(msg)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(indexKey(msg.ID), key)
	})
}

func (m *MessageRepository) Get(_ context.Context, id uuid.UUID) (domain.Message, error) {
	var stored storedMessage
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if err != nil {
			return err
		}
		var key []byte
		if err := item.Value(func(v []byte) error {
			key = append(key, v...)
			return nil
		}); err != nil {
			return err
		}
		record, err := txn.Get(key)
		if err != nil {
			return err
		}
		return record.Value(func(v []byte) error {
			return json.Unmarshal(v, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	return toDomain(stored)
}

// Update rewrites the record in place; the primary key is derived from
// the immutable room and creation time, so edits and soft deletes keep
// their timeline position.
func (m *MessageRepository) Update(_ context.Context, msg domain.Message) error {
	bytes, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(indexKey(msg.ID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, msg.ID)
			}
			return err
		}
		return txn.Set(primaryKey(msg), bytes)
	})
}

// ListByRoom retrieves messages newest-first using a reverse prefix
// scan, with cursor pagination. Soft-deleted messages are excluded from
// listings by default. The returned cursor is the key suffix of the
// last visited record, nil when the scan is exhausted.
func (m *MessageRepository) ListByRoom(_ context.Context, roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error) {
	var rawValues [][]byte
	var lastKey string
	exhausted := true

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(rawValues) == limit {
				exhausted = false
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(v []byte) error {
				rawValues = append(rawValues, append([]byte(nil), v...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, raw := range rawValues {
		var stored storedMessage
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, nil, err
		}
		if stored.DeletedAt != nil {
			continue
		}
		msg, err := toDomain(stored)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
	}

	if exhausted {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func fromDomain(msg domain.Message) storedMessage {
	var replyTo *string
	if msg.ReplyTo != nil {
		replyTo = lo.ToPtr(msg.ReplyTo.String())
	}
	return storedMessage{
		ID:         msg.ID.String(),
		Room:       string(msg.Room),
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Type:       string(msg.Type),
		ReplyTo:    replyTo,
		CreatedAt:  msg.CreatedAt.UnixNano(),
		EditedAt:   msg.EditedAt,
		DeletedAt:  msg.DeletedAt,
	}
}

func toDomain(stored storedMessage) (domain.Message, error) {
	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	var replyTo *uuid.UUID
	if stored.ReplyTo != nil {
		parsed, err := uuid.Parse(*stored.ReplyTo)
		if err != nil {
			return domain.Message{}, err
		}
		replyTo = &parsed
	}
	return domain.Message{
		ID:         id,
		Room:       domain.RoomID(stored.Room),
		AuthorID:   stored.AuthorID,
		AuthorName: stored.AuthorName,
		Content:    stored.Content,
		Type:       domain.MessageType(stored.Type),
		ReplyTo:    replyTo,
		CreatedAt:  time.Unix(0, stored.CreatedAt).UTC(),
		EditedAt:   stored.EditedAt,
		DeletedAt:  stored.DeletedAt,
	}, nil
}
