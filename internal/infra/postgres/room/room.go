package infra_postgres_room

import (
	"context"
	"database/sql"
	"errors"
	"strings"
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

type roomDTO struct {
	ID            int64         `db:"id"`
	Name          string        `db:"name"`
	Code          string        `db:"code"`
	Status        string        `db:"status"`
	CreatorID     int64         `db:"creator_id"`
	MaxPlayers    int           `db:"max_players"`
	CurrentRound  int           `db:"current_round"`
	RoundsTotal   int           `db:"rounds_total"`
	TimePerRound  int           `db:"time_per_round"`
	CurrentWordID sql.NullInt64 `db:"current_word_id"`
	Difficulty    string        `db:"difficulty"`
	CreatedAt     time.Time     `db:"created_at"`
}

func toModel(dto roomDTO) model.Room {
	room := model.Room{
		ID:           dto.ID,
		Name:         dto.Name,
		Code:         dto.Code,
		Status:       dto.Status,
		CreatorID:    dto.CreatorID,
		MaxPlayers:   dto.MaxPlayers,
		CurrentRound: dto.CurrentRound,
		RoundsTotal:  dto.RoundsTotal,
		TimePerRound: dto.TimePerRound,
		Difficulty:   dto.Difficulty,
		CreatedAt:    dto.CreatedAt,
	}
	if dto.CurrentWordID.Valid {
		id := dto.CurrentWordID.Int64
		room.CurrentWordID = &id
	}
	return room
}

func toDTO(room *model.Room) roomDTO {
	dto := roomDTO{
		ID:           room.ID,
		Name:         room.Name,
		Code:         room.Code,
		Status:       room.Status,
		CreatorID:    room.CreatorID,
		MaxPlayers:   room.MaxPlayers,
		CurrentRound: room.CurrentRound,
		RoundsTotal:  room.RoundsTotal,
		TimePerRound: room.TimePerRound,
		Difficulty:   room.Difficulty,
		CreatedAt:    room.CreatedAt,
	}
	if room.CurrentWordID != nil {
		dto.CurrentWordID = sql.NullInt64{Int64: *room.CurrentWordID, Valid: true}
	}
	return dto
}

func (d *Driver) Create(ctx context.Context, room *model.Room) error {
	dto := toDTO(room)

	query := `
		INSERT INTO rooms (name, code, status, creator_id, max_players,
			current_round, rounds_total, time_per_round, current_word_id,
			difficulty, created_at)
		VALUES (:name, :code, :status, :creator_id, :max_players,
			:current_round, :rounds_total, :time_per_round, :current_word_id,
			:difficulty, :created_at)
		RETURNING id
	`

	rows, err := d.db.NamedQueryContext(ctx, query, dto)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "duplicate key") {
			return model.ErrConflict
		}
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&room.ID); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *Driver) ByCode(ctx context.Context, code string) (model.Room, error) {
	var dto roomDTO

	query := `
        SELECT id, name, code, status, creator_id, max_players,
            current_round, rounds_total, time_per_round, current_word_id,
            difficulty, created_at
        FROM rooms
        WHERE code = $1
    `

	err := d.db.GetContext(ctx, &dto, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, model.ErrNotFound
		}
		return model.Room{}, err
	}

	return toModel(dto), nil
}

func (d *Driver) ListOpen(ctx context.Context) ([]model.Room, error) {
	var dtos []roomDTO

	query := `
        SELECT id, name, code, status, creator_id, max_players,
            current_round, rounds_total, time_per_round, current_word_id,
            difficulty, created_at
        FROM rooms
        WHERE status = $1
        ORDER BY created_at DESC
    `

	if err := d.db.SelectContext(ctx, &dtos, query, model.StatusWaiting); err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(dtos))
	for _, dto := range dtos {
		rooms = append(rooms, toModel(dto))
	}
	return rooms, nil
}

func (d *Driver) Save(ctx context.Context, room *model.Room) error {
	dto := toDTO(room)

	query := `
        UPDATE rooms
        SET status = :status,
            current_round = :current_round,
            current_word_id = :current_word_id,
            difficulty = :difficulty
        WHERE id = :id
    `

	result, err := d.db.NamedExecContext(ctx, query, dto)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (d *Driver) Delete(ctx context.Context, roomID int64) error {
	query := `
        DELETE FROM rooms
        WHERE id = $1
    `

	result, err := d.db.ExecContext(ctx, query, roomID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}

	return nil
}
