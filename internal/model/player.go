package model

import "time"

type PlayerRole = string

const (
	RoleExplaining PlayerRole = "explaining"
	RoleGuessing   PlayerRole = "guessing"
	RoleWaiting    PlayerRole = "waiting"
)

type Player struct {
	ID     int64
	UserID int64
	RoomID int64

	// Display name, joined from the users table.
	Name string

	Role           PlayerRole
	Score          int
	ScoreTotal     int
	CorrectAnswers int
	WrongAnswers   int
	JoinedAt       time.Time
}

func (p *Player) SuccessRate() float64 {
	total := p.CorrectAnswers + p.WrongAnswers
	if total == 0 {
		return 0.0
	}
	return float64(p.CorrectAnswers) / float64(total) * 100
}
