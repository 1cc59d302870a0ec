package usecase_game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Debukan/SpeechTrap/internal/model"
	service_turns "github.com/Debukan/SpeechTrap/internal/service/turns"
	"github.com/google/uuid"
)

// Session coordinator. Every inbound action (HTTP call or timer expiry)
// goes through the same sequence: load room+players, validate against the
// turn logic, persist, re-arm the round timer, broadcast. A per-room
// mutex serializes the read-modify-write so transitions for one room
// never interleave; rooms proceed independently of each other.

//go:generate mockery --name=RoomRepository --output=./mocks/room --filename=repository.go
type RoomRepository interface {
	ByCode(ctx context.Context, code string) (model.Room, error)
	Save(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, roomID int64) error
}

//go:generate mockery --name=PlayerRepository --output=./mocks/player --filename=repository.go
type PlayerRepository interface {
	// ByRoom returns the room's players ordered by id.
	ByRoom(ctx context.Context, roomID int64) ([]*model.Player, error)
	SaveAll(ctx context.Context, players []*model.Player) error
	Delete(ctx context.Context, playerID int64) error
	DeleteByRoom(ctx context.Context, roomID int64) error
}

//go:generate mockery --name=WordProvider --output=./mocks/word --filename=provider.go
type WordProvider interface {
	Random(ctx context.Context, difficulty model.Difficulty) (model.Word, error)
	Next(ctx context.Context, excludeID int64, difficulty model.Difficulty) (model.Word, error)
	ByID(ctx context.Context, id int64) (model.Word, error)
	UpdateStats(ctx context.Context, id int64, success bool) error
}

//go:generate mockery --name=ChatRepository --output=./mocks/chat --filename=repository.go
type ChatRepository interface {
	Save(ctx context.Context, msg model.ChatMessage) error
	// History returns the newest messages first.
	History(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error)
}

type Broadcaster interface {
	BroadcastToRoom(roomCode string, event any)
	BroadcastToRoomExcept(roomCode string, event any, excludeUserID int64)
	SendToUser(userID int64, event any)
}

type TimerScheduler interface {
	Arm(roomCode string, d time.Duration)
	Consume(roomCode string, gen uint64) bool
	Cancel(roomCode string)
	Remaining(roomCode string) (time.Duration, bool)
}

type GuessReply struct {
	Correct     bool    `json:"correct"`
	Score       int     `json:"score"`
	SuccessRate float64 `json:"successRate"`
}

type Usecase struct {
	rooms       RoomRepository
	players     PlayerRepository
	words       WordProvider
	chat        ChatRepository
	broadcaster Broadcaster
	timers      TimerScheduler

	pushInterval    time.Duration
	chatHistorySize int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	logger *slog.Logger
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithPushInterval(d time.Duration) UsecaseOption {
	return func(u *Usecase) {
		u.pushInterval = d
	}
}

func WithChatHistorySize(n int) UsecaseOption {
	return func(u *Usecase) {
		u.chatHistorySize = n
	}
}

func New(
	rooms RoomRepository,
	players PlayerRepository,
	words WordProvider,
	chat ChatRepository,
	broadcaster Broadcaster,
	timers TimerScheduler,
	opts ...UsecaseOption,
) *Usecase {
	u := &Usecase{
		rooms:           rooms,
		players:         players,
		words:           words,
		chat:            chat,
		broadcaster:     broadcaster,
		timers:          timers,
		pushInterval:    3 * time.Second,
		chatHistorySize: 50,
		locks:           make(map[string]*sync.Mutex),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) StartGame(ctx context.Context, code string, callerUserID int64) error {
	unlock := u.lockRoom(code)
	defer unlock()

	room, players, err := u.load(ctx, code)
	if err != nil {
		return err
	}

	if err := service_turns.Start(&room, players, callerUserID); err != nil {
		return err
	}

	word, err := u.words.Random(ctx, room.Difficulty)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return errors.Join(model.ErrInternal, err)
	}
	room.CurrentWordID = &word.ID

	if err := u.persist(ctx, &room, players); err != nil {
		return err
	}

	u.timers.Arm(code, roundDuration(&room))
	u.broadcaster.BroadcastToRoom(code, GameStartedEvent{
		Type:          EventGameStarted,
		Round:         room.CurrentRound,
		RoundsTotal:   room.RoundsTotal,
		TimePerRound:  room.TimePerRound,
		CurrentPlayer: players[0].UserID,
	})
	u.sendWordToExplainer(&room, players, word)

	go u.pushLoop(code)

	return nil
}

// EndTurn is the explainer giving up on the current word.
func (u *Usecase) EndTurn(ctx context.Context, code string, callerUserID int64) error {
	unlock := u.lockRoom(code)
	defer unlock()

	room, players, err := u.load(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != model.StatusPlaying {
		return model.ErrInvalidState
	}
	explainer := explainerOf(players)
	if explainer == nil || explainer.UserID != callerUserID {
		return model.ErrForbidden
	}

	return u.advanceTurn(ctx, &room, players, service_turns.ReasonEndTurn)
}

// HandleRoundTimeout is bound to the round timer scheduler. The expiry
// is claimed only after the room lock is held: a transition that beat
// the callback to the lock re-armed or cancelled the generation, and the
// claim failing means this expiry is stale and must not advance the turn
// a second time. Errors here are logged and swallowed because no caller
// is waiting for them.
func (u *Usecase) HandleRoundTimeout(code string, gen uint64) {
	ctx := context.Background()

	unlock := u.lockRoom(code)
	defer unlock()

	if !u.timers.Consume(code, gen) {
		return
	}

	room, players, err := u.load(ctx, code)
	if err != nil {
		u.logger.Error("round timeout on unloadable room", "room", code, "error", err)
		return
	}
	if room.Status != model.StatusPlaying {
		return
	}

	if err := u.advanceTurn(ctx, &room, players, service_turns.ReasonTimeout); err != nil {
		u.logger.Error("round timeout transition failed", "room", code, "error", err)
	}
}

func (u *Usecase) advanceTurn(ctx context.Context, room *model.Room, players []*model.Player, reason service_turns.Reason) error {
	var excludeID int64
	if room.CurrentWordID != nil {
		excludeID = *room.CurrentWordID
	}

	res := service_turns.Advance(room, players)

	var word model.Word
	if !res.Finished {
		var err error
		word, err = u.words.Next(ctx, excludeID, room.Difficulty)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrNotFound
			}
			return errors.Join(model.ErrInternal, err)
		}
		room.CurrentWordID = &word.ID
	}

	if err := u.persist(ctx, room, players); err != nil {
		return err
	}

	if res.Finished {
		u.timers.Cancel(room.Code)
		u.broadcaster.BroadcastToRoom(room.Code, GameFinishedEvent{
			Type:     EventGameFinished,
			WinnerID: res.WinnerUserID,
		})
		return nil
	}

	u.timers.Arm(room.Code, roundDuration(room))
	u.broadcaster.BroadcastToRoom(room.Code, TurnChangedEvent{
		Type:          EventTurnChanged,
		Round:         room.CurrentRound,
		CurrentPlayer: res.NextExplainerUserID,
		Reason:        string(reason),
	})
	u.sendWordToExplainer(room, players, word)

	return nil
}

func (u *Usecase) SubmitGuess(ctx context.Context, code string, callerUserID int64, guess string) (GuessReply, error) {
	unlock := u.lockRoom(code)
	defer unlock()

	room, players, err := u.load(ctx, code)
	if err != nil {
		return GuessReply{}, err
	}
	if room.Status != model.StatusPlaying || room.CurrentWordID == nil {
		return GuessReply{}, model.ErrInvalidState
	}

	word, err := u.words.ByID(ctx, *room.CurrentWordID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return GuessReply{}, model.ErrNotFound
		}
		return GuessReply{}, errors.Join(model.ErrInternal, err)
	}

	prevExplainer := explainerOf(players)

	res, err := service_turns.Guess(&room, players, callerUserID, guess, word.Word)
	if err != nil {
		return GuessReply{}, err
	}

	guesser := playerOf(players, callerUserID)

	if !res.Correct {
		if err := u.persist(ctx, &room, players); err != nil {
			return GuessReply{}, err
		}
		u.updateWordStats(ctx, word.ID, false)
		u.broadcaster.BroadcastToRoom(code, WrongGuessEvent{
			Type:   EventWrongGuess,
			UserID: guesser.UserID,
			Name:   guesser.Name,
			Guess:  guess,
		})
		return GuessReply{Correct: false, Score: guesser.Score, SuccessRate: guesser.SuccessRate()}, nil
	}

	var nextWord model.Word
	if !res.Finished {
		nextWord, err = u.words.Next(ctx, word.ID, room.Difficulty)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return GuessReply{}, model.ErrNotFound
			}
			return GuessReply{}, errors.Join(model.ErrInternal, err)
		}
		room.CurrentWordID = &nextWord.ID
	}

	if err := u.persist(ctx, &room, players); err != nil {
		return GuessReply{}, err
	}
	u.updateWordStats(ctx, word.ID, true)

	u.broadcaster.BroadcastToRoom(code, CorrectGuessEvent{
		Type:           EventCorrectGuess,
		UserID:         guesser.UserID,
		Name:           guesser.Name,
		Word:           word.Word,
		GuesserScore:   guesser.Score,
		ExplainerScore: prevExplainer.Score,
	})

	if res.Finished {
		u.timers.Cancel(code)
		u.broadcaster.BroadcastToRoom(code, GameFinishedEvent{
			Type:     EventGameFinished,
			WinnerID: res.WinnerUserID,
		})
	} else {
		u.timers.Arm(code, roundDuration(&room))
		u.broadcaster.BroadcastToRoom(code, TurnChangedEvent{
			Type:          EventTurnChanged,
			Round:         room.CurrentRound,
			CurrentPlayer: res.NextExplainerUserID,
			Reason:        string(service_turns.ReasonCorrectGuess),
		})
		u.sendWordToExplainer(&room, players, nextWord)
	}

	return GuessReply{Correct: true, Score: guesser.Score, SuccessRate: guesser.SuccessRate()}, nil
}

func (u *Usecase) LeaveGame(ctx context.Context, code string, callerUserID int64) error {
	unlock := u.lockRoom(code)
	defer unlock()

	room, players, err := u.load(ctx, code)
	if err != nil {
		return err
	}

	res, err := service_turns.RemovePlayer(&room, players, callerUserID)
	if err != nil {
		return err
	}

	if res.DestroyRoom {
		if err := u.players.DeleteByRoom(ctx, room.ID); err != nil {
			return errors.Join(model.ErrInternal, err)
		}
		if err := u.rooms.Delete(ctx, room.ID); err != nil {
			return errors.Join(model.ErrInternal, err)
		}
		u.timers.Cancel(code)
		u.broadcaster.BroadcastToRoom(code, RoomClosedEvent{Type: EventRoomClosed, Code: code})
		return nil
	}

	leaver := playerOf(players, callerUserID)
	if err := u.players.Delete(ctx, leaver.ID); err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	remaining := withoutPlayer(players, callerUserID)
	if err := u.persist(ctx, &room, remaining); err != nil {
		return err
	}

	u.broadcaster.BroadcastToRoom(code, PlayerLeftEvent{
		Type:          EventPlayerLeft,
		UserID:        callerUserID,
		CurrentPlayer: res.NewExplainerUserID,
	})

	// The turn keeps its word and its running timer; only the role moved.
	if res.NewExplainerUserID != 0 && room.CurrentWordID != nil {
		word, err := u.words.ByID(ctx, *room.CurrentWordID)
		if err != nil {
			u.logger.Error("word lookup for new explainer failed", "room", code, "error", err)
			return nil
		}
		u.sendWordToExplainer(&room, remaining, word)
	}

	return nil
}

func (u *Usecase) SendChat(ctx context.Context, code string, callerUserID int64, text string) error {
	room, players, err := u.load(ctx, code)
	if err != nil {
		return err
	}
	sender := playerOf(players, callerUserID)
	if sender == nil {
		return model.ErrForbidden
	}

	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		UserID:    callerUserID,
		Username:  sender.Name,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := u.chat.Save(ctx, msg); err != nil {
		return errors.Join(model.ErrInternal, err)
	}

	// The sender renders its own message locally; echo to everyone else.
	u.broadcaster.BroadcastToRoomExcept(code, ChatMessageEvent{
		Type:      EventChatMessage,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt.Format(time.RFC3339),
	}, callerUserID)

	return nil
}

// ChatHistory returns the room's recent messages oldest-first.
func (u *Usecase) ChatHistory(ctx context.Context, code string) ([]model.ChatMessage, error) {
	room, err := u.rooms.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, errors.Join(model.ErrInternal, err)
	}

	msgs, err := u.chat.History(ctx, room.ID, u.chatHistorySize)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (u *Usecase) GameState(ctx context.Context, code string) (GameStateEvent, error) {
	unlock := u.lockRoom(code)
	defer unlock()

	room, players, err := u.load(ctx, code)
	if err != nil {
		return GameStateEvent{}, err
	}

	// A Playing room without an armed timer lost it somewhere (process
	// hiccup); recover by arming a full one. Only here, under the room
	// lock: an unlocked path cannot tell a lost timer from a game that
	// finished a moment ago.
	if room.Status == model.StatusPlaying {
		if _, ok := u.timers.Remaining(room.Code); !ok {
			u.logger.Warn("playing room had no timer, re-arming", "room", room.Code)
			u.timers.Arm(room.Code, roundDuration(&room))
		}
	}

	return buildState(&room, players, u.timeLeft(&room)), nil
}

// timeLeft reports the running countdown. Read-only: a missing timer is
// reported as a full round, never repaired here, because this runs on
// unlocked paths too.
func (u *Usecase) timeLeft(room *model.Room) int {
	if room.Status != model.StatusPlaying {
		return 0
	}
	left, ok := u.timers.Remaining(room.Code)
	if !ok {
		return room.TimePerRound
	}
	return int(left.Round(time.Second) / time.Second)
}

// pushLoop periodically rebroadcasts full state while the room is
// Playing. It stops on its own once the game is over or everybody left.
func (u *Usecase) pushLoop(code string) {
	ctx := context.Background()
	ticker := time.NewTicker(u.pushInterval)
	defer ticker.Stop()

	for range ticker.C {
		room, players, err := u.load(ctx, code)
		if err != nil || room.Status != model.StatusPlaying || len(players) == 0 {
			return
		}

		state := buildState(&room, players, u.timeLeft(&room))
		u.broadcaster.BroadcastToRoom(code, state)

		if room.CurrentWordID == nil {
			continue
		}
		word, err := u.words.ByID(ctx, *room.CurrentWordID)
		if err != nil {
			u.logger.Error("state push word lookup failed", "room", code, "error", err)
			continue
		}
		if explainer := explainerOf(players); explainer != nil {
			u.broadcaster.SendToUser(explainer.UserID, ExplainerStateEvent{
				GameStateEvent: state,
				Word:           word.Word,
				Associations:   word.Associations,
			})
		}
	}
}

func (u *Usecase) sendWordToExplainer(room *model.Room, players []*model.Player, word model.Word) {
	explainer := explainerOf(players)
	if explainer == nil {
		return
	}
	u.broadcaster.SendToUser(explainer.UserID, ExplainerStateEvent{
		GameStateEvent: buildState(room, players, u.timeLeft(room)),
		Word:           word.Word,
		Associations:   word.Associations,
	})
}

func (u *Usecase) load(ctx context.Context, code string) (model.Room, []*model.Player, error) {
	room, err := u.rooms.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Room{}, nil, model.ErrNotFound
		}
		return model.Room{}, nil, errors.Join(model.ErrInternal, err)
	}
	players, err := u.players.ByRoom(ctx, room.ID)
	if err != nil {
		return model.Room{}, nil, errors.Join(model.ErrInternal, err)
	}
	return room, players, nil
}

func (u *Usecase) persist(ctx context.Context, room *model.Room, players []*model.Player) error {
	if err := u.rooms.Save(ctx, room); err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	if err := u.players.SaveAll(ctx, players); err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	return nil
}

// Word usage stats are best effort; a failed update never blocks the
// transition that was already persisted.
func (u *Usecase) updateWordStats(ctx context.Context, wordID int64, success bool) {
	if err := u.words.UpdateStats(ctx, wordID, success); err != nil {
		u.logger.Error("word stats update failed", "word_id", wordID, "error", err)
	}
}

func (u *Usecase) lockRoom(code string) func() {
	u.mu.Lock()
	m, ok := u.locks[code]
	if !ok {
		m = &sync.Mutex{}
		u.locks[code] = m
	}
	u.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func roundDuration(room *model.Room) time.Duration {
	return time.Duration(room.TimePerRound) * time.Second
}

func explainerOf(players []*model.Player) *model.Player {
	for _, p := range players {
		if p.Role == model.RoleExplaining {
			return p
		}
	}
	return nil
}

func playerOf(players []*model.Player, userID int64) *model.Player {
	for _, p := range players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func withoutPlayer(players []*model.Player, userID int64) []*model.Player {
	out := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}
