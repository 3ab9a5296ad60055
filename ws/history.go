package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

const defaultHistoryLimit = 50

// handleListRooms serves GET /projects/{id}/rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	projectID := domain.ProjectID(mux.Vars(r)["id"])

	rooms, err := s.svc.ListRooms(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, struct {
		Rooms []roomJSON `json:"rooms"`
	}{lo.Map(rooms, func(room domain.Room, _ int) roomJSON {
		return toRoomJSON(room)
	})})
}

// handleHistory serves GET /projects/{id}/rooms/{roomId}/messages with
// cursor pagination, newest first. Soft-deleted messages are excluded
// from default listings.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(mux.Vars(r)["roomId"])

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, next, err := s.svc.History(r.Context(), roomID, cursor, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, struct {
		Messages []messageJSON `json:"messages"`
		Cursor   *string       `json:"cursor,omitempty"`
	}{lo.Map(messages, func(m domain.Message, _ int) messageJSON {
		return toMessageJSON(m)
	}), next})
}

func (s *Server) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, relayerrors.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
