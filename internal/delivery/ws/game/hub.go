package ws_game

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks live connections per room, keyed by user id so the secret
// word can be delivered to exactly one player. Send failures are
// per-client: a dead connection is dropped and the rest of the fan-out
// continues.

type Hub struct {
	mu sync.RWMutex

	// roomCode -> userID -> client
	rooms map[string]map[int64]*Client

	logger *slog.Logger
}

type HubOption func(*Hub)

func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[int64]*Client),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[client.RoomCode]; !ok {
		h.rooms[client.RoomCode] = make(map[int64]*Client)
	}
	if prev, ok := h.rooms[client.RoomCode][client.UserID]; ok {
		// A reconnect replaces the old connection.
		close(prev.Send)
	}
	h.rooms[client.RoomCode][client.UserID] = client

	h.logger.Info("client registered", "room", client.RoomCode, "user_id", client.UserID)
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[client.RoomCode]; ok {
		if room[client.UserID] == client {
			delete(room, client.UserID)
			close(client.Send)
		}
		if len(room) == 0 {
			delete(h.rooms, client.RoomCode)
		}
	}
	h.logger.Info("client unregistered", "room", client.RoomCode, "user_id", client.UserID)
}

func (h *Hub) BroadcastToRoom(roomCode string, event any) {
	h.broadcast(roomCode, event, 0)
}

func (h *Hub) BroadcastToRoomExcept(roomCode string, event any, excludeUserID int64) {
	h.broadcast(roomCode, event, excludeUserID)
}

func (h *Hub) broadcast(roomCode string, event any, excludeUserID int64) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("broadcast marshal failed", "room", roomCode, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[roomCode]
	if !ok {
		return
	}
	for userID, client := range clients {
		if userID == excludeUserID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("slow client dropped", "room", roomCode, "user_id", userID)
			close(client.Send)
			delete(clients, userID)
		}
	}
}

// SendToUser delivers a private event to a single connected user,
// whichever room it is in. Used for the explainer-only word reveal.
func (h *Hub) SendToUser(userID int64, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("private send marshal failed", "user_id", userID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for roomCode, clients := range h.rooms {
		client, ok := clients[userID]
		if !ok {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("slow client dropped", "room", roomCode, "user_id", userID)
			close(client.Send)
			delete(clients, userID)
		}
		return
	}
}

// SendToClient pushes an already-connected client its initial payloads
// (chat history, current state) outside of any room-wide fan-out.
func (h *Hub) SendToClient(client *Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("client send marshal failed", "user_id", client.UserID, "error", err)
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}
