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
)

// RoomRepository persists rooms in BadgerDB under
// "room:{project_id}:{room_id}", so one prefix scan lists a project's
// rooms. "roomid:{room_id}" points back to the primary key for direct
// lookups.
type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log}
}

type storedRoom struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func roomKey(projectID domain.ProjectID, roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("room:%s:%s", projectID, roomID))
}

func roomIndexKey(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("roomid:%s", roomID))
}

func (r *RoomRepository) Create(_ context.Context, room domain.Room) error {
	bytes, err := json.Marshal(storedRoom{
		ID:          string(room.ID),
		Project:     string(room.Project),
		Name:        room.Name,
		Description: room.Description,
		Type:        string(room.Type),
		CreatedBy:   room.CreatedBy,
		CreatedAt:   room.CreatedAt,
	})
	if err != nil {
		return err
	}
	key := roomKey(room.Project, room.ID)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(roomIndexKey(room.ID), key)
	})
}

func (r *RoomRepository) Get(_ context.Context, id domain.RoomID) (domain.Room, error) {
	var stored storedRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomIndexKey(id))
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
		return domain.Room{}, fmt.Errorf("%w: room %s", relayerrors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(stored), nil
}

func (r *RoomRepository) ListByProject(_ context.Context, projectID domain.ProjectID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("room:%s:", projectID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedRoom
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &stored)
			}); err != nil {
				return err
			}
			rooms = append(rooms, toRoom(stored))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func toRoom(stored storedRoom) domain.Room {
	return domain.Room{
		ID:          domain.RoomID(stored.ID),
		Project:     domain.ProjectID(stored.Project),
		Name:        stored.Name,
		Description: stored.Description,
		Type:        domain.RoomType(stored.Type),
		CreatedBy:   stored.CreatedBy,
		CreatedAt:   stored.CreatedAt,
	}
}
