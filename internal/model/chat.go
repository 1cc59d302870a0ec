package model

import "time"

type ChatMessage struct {
	ID        string
	RoomID    int64
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
}
