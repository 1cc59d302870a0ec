package infra_postgres_word

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Debukan/SpeechTrap/internal/model"
	"github.com/jmoiron/sqlx"
)

// Word bank access. Random selection is pushed down to the database;
// associations live in a JSON column.

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type wordDTO struct {
	ID           int64   `db:"id"`
	Word         string  `db:"word"`
	Category     string  `db:"category"`
	Associations []byte  `db:"associations"`
	Difficulty   string  `db:"difficulty"`
	IsActive     bool    `db:"is_active"`
	TimesUsed    int     `db:"times_used"`
	SuccessRate  float64 `db:"success_rate"`
}

func toModel(dto wordDTO) (model.Word, error) {
	word := model.Word{
		ID:          dto.ID,
		Word:        dto.Word,
		Category:    dto.Category,
		Difficulty:  dto.Difficulty,
		IsActive:    dto.IsActive,
		TimesUsed:   dto.TimesUsed,
		SuccessRate: dto.SuccessRate,
	}
	if len(dto.Associations) > 0 {
		if err := json.Unmarshal(dto.Associations, &word.Associations); err != nil {
			return model.Word{}, err
		}
	}
	return word, nil
}

const wordColumns = `id, word, category, associations, difficulty, is_active, times_used, success_rate`

func (d *Driver) Random(ctx context.Context, difficulty model.Difficulty) (model.Word, error) {
	var dto wordDTO

	query := `
        SELECT ` + wordColumns + `
        FROM words
        WHERE is_active AND difficulty = $1
        ORDER BY random()
        LIMIT 1
    `

	err := d.db.GetContext(ctx, &dto, query, difficulty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Word{}, model.ErrNotFound
		}
		return model.Word{}, err
	}

	return toModel(dto)
}

func (d *Driver) Next(ctx context.Context, excludeID int64, difficulty model.Difficulty) (model.Word, error) {
	var dto wordDTO

	query := `
        SELECT ` + wordColumns + `
        FROM words
        WHERE is_active AND difficulty = $1 AND id != $2
        ORDER BY random()
        LIMIT 1
    `

	err := d.db.GetContext(ctx, &dto, query, difficulty, excludeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Word{}, model.ErrNotFound
		}
		return model.Word{}, err
	}

	return toModel(dto)
}

func (d *Driver) ByID(ctx context.Context, id int64) (model.Word, error) {
	var dto wordDTO

	query := `
        SELECT ` + wordColumns + `
        FROM words
        WHERE id = $1
    `

	err := d.db.GetContext(ctx, &dto, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Word{}, model.ErrNotFound
		}
		return model.Word{}, err
	}

	return toModel(dto)
}

// UpdateStats folds one usage into the word's running success rate.
func (d *Driver) UpdateStats(ctx context.Context, id int64, success bool) error {
	query := `
        UPDATE words
        SET times_used = times_used + 1,
            success_rate = (success_rate * times_used + $1) / (times_used + 1)
        WHERE id = $2
    `

	outcome := 0.0
	if success {
		outcome = 1.0
	}

	result, err := d.db.ExecContext(ctx, query, outcome, id)
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
