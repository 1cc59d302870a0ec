package ws_game

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	UserID   int64
	RoomCode string
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatSender routes inbound chat messages into the game session.
type ChatSender interface {
	SendChat(ctx context.Context, code string, callerUserID int64, text string) error
}

func (h *Hub) StartClientReading(client *Client, chat ChatSender) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn("unparseable client message", "user_id", client.UserID, "error", err)
			continue
		}

		switch msg.Type {
		case "chat":
			if err := chat.SendChat(context.Background(), client.RoomCode, client.UserID, msg.Text); err != nil {
				h.logger.Error("chat send failed",
					"room", client.RoomCode,
					"user_id", client.UserID,
					"error", err)
			}
		default:
			h.logger.Warn("unknown client message type", "type", msg.Type, "user_id", client.UserID)
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
