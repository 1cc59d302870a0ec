package infra_postgres_chat

import (
	"context"
	"time"

	"github.com/Debukan/SpeechTrap/internal/model"
	"github.com/jmoiron/sqlx"
)

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type messageDTO struct {
	ID        string    `db:"id"`
	RoomID    int64     `db:"room_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"name"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (d *Driver) Save(ctx context.Context, msg model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, room_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := d.db.ExecContext(ctx, query,
		msg.ID,
		msg.RoomID,
		msg.UserID,
		msg.Text,
		msg.CreatedAt,
	)
	return err
}

// History returns the newest messages first; callers reverse for display.
func (d *Driver) History(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error) {
	var dtos []messageDTO

	query := `
        SELECT m.id, m.room_id, m.user_id, u.name, m.text, m.created_at
        FROM chat_messages m
        JOIN users u ON u.id = m.user_id
        WHERE m.room_id = $1
        ORDER BY m.created_at DESC
        LIMIT $2
    `

	if err := d.db.SelectContext(ctx, &dtos, query, roomID, limit); err != nil {
		return nil, err
	}

	msgs := make([]model.ChatMessage, 0, len(dtos))
	for _, dto := range dtos {
		msgs = append(msgs, model.ChatMessage{
			ID:        dto.ID,
			RoomID:    dto.RoomID,
			UserID:    dto.UserID,
			Username:  dto.Username,
			Text:      dto.Text,
			CreatedAt: dto.CreatedAt,
		})
	}
	return msgs, nil
}
