package infra_postgres_player

import (
	"context"
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

type playerDTO struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	RoomID         int64     `db:"room_id"`
	Name           string    `db:"name"`
	Role           string    `db:"role"`
	Score          int       `db:"score"`
	ScoreTotal     int       `db:"score_total"`
	CorrectAnswers int       `db:"correct_answers"`
	WrongAnswers   int       `db:"wrong_answers"`
	JoinedAt       time.Time `db:"joined_at"`
}

func toModel(dto playerDTO) *model.Player {
	return &model.Player{
		ID:             dto.ID,
		UserID:         dto.UserID,
		RoomID:         dto.RoomID,
		Name:           dto.Name,
		Role:           dto.Role,
		Score:          dto.Score,
		ScoreTotal:     dto.ScoreTotal,
		CorrectAnswers: dto.CorrectAnswers,
		WrongAnswers:   dto.WrongAnswers,
		JoinedAt:       dto.JoinedAt,
	}
}

func (d *Driver) Create(ctx context.Context, player *model.Player) error {
	query := `
		INSERT INTO players (user_id, room_id, role, score, score_total,
			correct_answers, wrong_answers, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, query,
		player.UserID,
		player.RoomID,
		player.Role,
		player.Score,
		player.ScoreTotal,
		player.CorrectAnswers,
		player.WrongAnswers,
		player.JoinedAt,
	).Scan(&player.ID)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "duplicate key") {
			return model.ErrConflict
		}
		return err
	}
	return nil
}

// ByRoom returns the room's players ordered by id, with display names
// joined from the users table.
func (d *Driver) ByRoom(ctx context.Context, roomID int64) ([]*model.Player, error) {
	var dtos []playerDTO

	query := `
        SELECT p.id, p.user_id, p.room_id, u.name, p.role, p.score,
            p.score_total, p.correct_answers, p.wrong_answers, p.joined_at
        FROM players p
        JOIN users u ON u.id = p.user_id
        WHERE p.room_id = $1
        ORDER BY p.id
    `

	if err := d.db.SelectContext(ctx, &dtos, query, roomID); err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(dtos))
	for _, dto := range dtos {
		players = append(players, toModel(dto))
	}
	return players, nil
}

func (d *Driver) Save(ctx context.Context, player *model.Player) error {
	query := `
        UPDATE players
        SET role = $1, score = $2, score_total = $3,
            correct_answers = $4, wrong_answers = $5
        WHERE id = $6
    `

	result, err := d.db.ExecContext(ctx, query,
		player.Role,
		player.Score,
		player.ScoreTotal,
		player.CorrectAnswers,
		player.WrongAnswers,
		player.ID,
	)
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

func (d *Driver) SaveAll(ctx context.Context, players []*model.Player) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE players
        SET role = $1, score = $2, score_total = $3,
            correct_answers = $4, wrong_answers = $5
        WHERE id = $6
    `

	for _, player := range players {
		if _, err := tx.ExecContext(ctx, query,
			player.Role,
			player.Score,
			player.ScoreTotal,
			player.CorrectAnswers,
			player.WrongAnswers,
			player.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *Driver) Delete(ctx context.Context, playerID int64) error {
	query := `
        DELETE FROM players
        WHERE id = $1
    `

	result, err := d.db.ExecContext(ctx, query, playerID)
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

func (d *Driver) DeleteByRoom(ctx context.Context, roomID int64) error {
	query := `
        DELETE FROM players
        WHERE room_id = $1
    `

	if _, err := d.db.ExecContext(ctx, query, roomID); err != nil {
		return err
	}
	return nil
}
