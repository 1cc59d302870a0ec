package usecase_game

import "github.com/Debukan/SpeechTrap/internal/model"

const (
	EventGameStarted     = "game_started"
	EventTurnChanged     = "turn_changed"
	EventCorrectGuess    = "correct_guess"
	EventWrongGuess      = "wrong_guess"
	EventGameFinished    = "game_finished"
	EventGameStateUpdate = "game_state_update"
	EventPlayerLeft      = "player_left"
	EventRoomClosed      = "room_closed"
	EventChatMessage     = "chat_message"
)

type GameStartedEvent struct {
	Type          string `json:"type"`
	Round         int    `json:"round"`
	RoundsTotal   int    `json:"roundsTotal"`
	TimePerRound  int    `json:"timePerRound"`
	CurrentPlayer int64  `json:"currentPlayer"`
}

type TurnChangedEvent struct {
	Type          string `json:"type"`
	Round         int    `json:"round"`
	CurrentPlayer int64  `json:"currentPlayer"`
	Reason        string `json:"reason"`
}

type CorrectGuessEvent struct {
	Type           string `json:"type"`
	UserID         int64  `json:"userId"`
	Name           string `json:"name"`
	Word           string `json:"word"`
	GuesserScore   int    `json:"guesserScore"`
	ExplainerScore int    `json:"explainerScore"`
}

type WrongGuessEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Guess  string `json:"guess"`
}

type GameFinishedEvent struct {
	Type     string `json:"type"`
	WinnerID int64  `json:"winnerId"`
}

type PlayerLeftEvent struct {
	Type          string `json:"type"`
	UserID        int64  `json:"userId"`
	CurrentPlayer int64  `json:"currentPlayer,omitempty"`
}

type RoomClosedEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type ChatMessageEvent struct {
	Type      string `json:"type"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsHistory bool   `json:"isHistory,omitempty"`
}

type PlayerState struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Role  string `json:"role"`
}

// GameStateEvent is the room-wide periodic snapshot; the secret word is
// never present here.
type GameStateEvent struct {
	Type          string        `json:"type"`
	Players       []PlayerState `json:"players"`
	Round         int           `json:"round"`
	Status        string        `json:"status"`
	TimeLeft      int           `json:"timeLeft"`
	CurrentPlayer int64         `json:"currentPlayer"`
	RoundsTotal   int           `json:"roundsTotal"`
	TimePerRound  int           `json:"timePerRound"`
}

// ExplainerStateEvent is the personal variant delivered only to the
// current explainer.
type ExplainerStateEvent struct {
	GameStateEvent
	Word         string   `json:"word"`
	Associations []string `json:"associations"`
}

func buildState(room *model.Room, players []*model.Player, timeLeft int) GameStateEvent {
	state := GameStateEvent{
		Type:         EventGameStateUpdate,
		Players:      make([]PlayerState, 0, len(players)),
		Round:        room.CurrentRound,
		Status:       room.Status,
		TimeLeft:     timeLeft,
		RoundsTotal:  room.RoundsTotal,
		TimePerRound: room.TimePerRound,
	}
	for _, p := range players {
		state.Players = append(state.Players, PlayerState{
			ID:    p.UserID,
			Name:  p.Name,
			Score: p.Score,
			Role:  p.Role,
		})
		if p.Role == model.RoleExplaining {
			state.CurrentPlayer = p.UserID
		}
	}
	return state
}
