package model

import "time"

type GameStatus = string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
	StatusPaused   GameStatus = "paused"
)

type Room struct {
	ID            int64
	Name          string
	Code          string
	Status        GameStatus
	CreatorID     int64
	MaxPlayers    int
	CurrentRound  int
	RoundsTotal   int
	TimePerRound  int
	CurrentWordID *int64
	Difficulty    Difficulty
	CreatedAt     time.Time
}

func (r *Room) IsFull(playerCount int) bool {
	return playerCount >= r.MaxPlayers
}

func (r *Room) CanStart(playerCount int) bool {
	return r.Status == StatusWaiting && playerCount >= 2
}
