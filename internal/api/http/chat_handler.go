package http

import (
	"net/http"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/service"
)

type ChatHandler struct {
	chat service.ChatService
}

func NewChatHandler(chat service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.chat.ListRooms(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []domain.ChatRoom{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *ChatHandler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OtherUserID string `json:"other_user_id"`
		ItemID      int64  `json:"item_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := h.chat.OpenRoom(r.Context(), UserIDFromContext(r.Context()), req.OtherUserID, req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := h.chat.ListMessages(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.chat.SendMessage(r.Context(), UserIDFromContext(r.Context()), id, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
