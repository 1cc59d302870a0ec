package service_turns

import (
	"strings"

	"github.com/Debukan/SpeechTrap/internal/model"
)

// Pure transition logic over a room snapshot and its player list.
// Players must be ordered by id; callers pass the slice straight from the
// repository and persist the mutated entities afterwards. No I/O happens
// here: word selection is reported back through the results and performed
// by the coordinator.

type Reason string

const (
	ReasonTimeout      Reason = "timeout"
	ReasonEndTurn      Reason = "end_turn"
	ReasonCorrectGuess Reason = "correct_guess"
	ReasonPlayerLeft   Reason = "player_left"
)

type AdvanceResult struct {
	Finished bool

	// Set when Finished: user id of the player with the highest total
	// score, first match in id order on ties.
	WinnerUserID int64

	// Set when not Finished.
	NextExplainerUserID int64
}

type GuessResult struct {
	Correct bool
	AdvanceResult
}

type LeaveResult struct {
	DestroyRoom bool

	// Non-zero when the explainer left mid-game and the role moved on.
	NewExplainerUserID int64
}

func Start(room *model.Room, players []*model.Player, callerUserID int64) error {
	if room.Status != model.StatusWaiting {
		return model.ErrInvalidState
	}
	if len(players) < 2 {
		return model.ErrInsufficientPlayers
	}
	if callerUserID != room.CreatorID {
		return model.ErrForbidden
	}

	for i, p := range players {
		p.Score = 0
		if i == 0 {
			p.Role = model.RoleExplaining
		} else {
			p.Role = model.RoleGuessing
		}
	}
	room.Status = model.StatusPlaying
	room.CurrentRound = 1

	return nil
}

// Advance moves the explaining role to the next player in id order and
// increments the round. Used for timer expiry and explicit end-turn alike.
func Advance(room *model.Room, players []*model.Player) AdvanceResult {
	idx := explainerIndex(players)
	if idx >= 0 {
		players[idx].Role = model.RoleGuessing
	}
	next := players[(idx+1)%len(players)]
	next.Role = model.RoleExplaining

	room.CurrentRound++
	if room.CurrentRound > room.RoundsTotal {
		return finishGame(room, players)
	}

	return AdvanceResult{NextExplainerUserID: next.UserID}
}

// Guess checks a guesser's answer against the secret word. A correct
// guess swaps roles: the guesser becomes the explainer for the next
// round, unlike timer-driven rotation.
func Guess(room *model.Room, players []*model.Player, guesserUserID int64, guess, secret string) (GuessResult, error) {
	if room.Status != model.StatusPlaying {
		return GuessResult{}, model.ErrInvalidState
	}

	var guesser *model.Player
	for _, p := range players {
		if p.UserID == guesserUserID {
			guesser = p
			break
		}
	}
	if guesser == nil {
		return GuessResult{}, model.ErrNotFound
	}
	if guesser.Role != model.RoleGuessing {
		return GuessResult{}, model.ErrForbidden
	}

	if !matches(guess, secret) {
		guesser.WrongAnswers++
		return GuessResult{Correct: false}, nil
	}

	guesser.Score += 10
	guesser.CorrectAnswers++

	if idx := explainerIndex(players); idx >= 0 {
		players[idx].Score += 5
		players[idx].Role = model.RoleGuessing
	}
	guesser.Role = model.RoleExplaining

	room.CurrentRound++
	if room.CurrentRound > room.RoundsTotal {
		return GuessResult{Correct: true, AdvanceResult: finishGame(room, players)}, nil
	}

	return GuessResult{
		Correct:       true,
		AdvanceResult: AdvanceResult{NextExplainerUserID: guesser.UserID},
	}, nil
}

// RemovePlayer applies the leave rules. The leaver must already be
// excluded from persistence by the caller; here only roles and room fate
// are decided. players is the full list including the leaver.
func RemovePlayer(room *model.Room, players []*model.Player, leavingUserID int64) (LeaveResult, error) {
	leaverIdx := -1
	for i, p := range players {
		if p.UserID == leavingUserID {
			leaverIdx = i
			break
		}
	}
	if leaverIdx == -1 {
		return LeaveResult{}, model.ErrNotFound
	}
	leaver := players[leaverIdx]

	remaining := len(players) - 1
	if remaining == 0 {
		return LeaveResult{DestroyRoom: true}, nil
	}

	if remaining == 1 && room.Status == model.StatusPlaying {
		// A game cannot continue with one player. Fold the survivor's
		// score and close the room.
		for i, p := range players {
			if i != leaverIdx {
				p.ScoreTotal += p.Score
				p.Score = 0
				p.Role = model.RoleWaiting
			}
		}
		return LeaveResult{DestroyRoom: true}, nil
	}

	if leaver.UserID == room.CreatorID && room.Status == model.StatusWaiting {
		// Closing an unstarted lobby removes it along with its players.
		return LeaveResult{DestroyRoom: true}, nil
	}

	var res LeaveResult
	if room.Status == model.StatusPlaying && leaver.Role == model.RoleExplaining {
		next := players[(leaverIdx+1)%len(players)]
		next.Role = model.RoleExplaining
		res.NewExplainerUserID = next.UserID
	}

	return res, nil
}

func finishGame(room *model.Room, players []*model.Player) AdvanceResult {
	for _, p := range players {
		p.ScoreTotal += p.Score
		p.Score = 0
		p.Role = model.RoleWaiting
	}

	var winner *model.Player
	for _, p := range players {
		if winner == nil || p.ScoreTotal > winner.ScoreTotal {
			winner = p
		}
	}

	room.Status = model.StatusWaiting
	room.CurrentRound = 0
	room.CurrentWordID = nil

	return AdvanceResult{Finished: true, WinnerUserID: winner.UserID}
}

func explainerIndex(players []*model.Player) int {
	for i, p := range players {
		if p.Role == model.RoleExplaining {
			return i
		}
	}
	return -1
}

func matches(guess, secret string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(secret))
}
