package model

type Difficulty = string

const (
	DifficultyBasic  Difficulty = "basic"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Word struct {
	ID           int64
	Word         string
	Category     string
	Associations []string
	Difficulty   Difficulty
	IsActive     bool
	TimesUsed    int
	SuccessRate  float64
}
