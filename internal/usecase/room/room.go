package usecase_room

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Debukan/SpeechTrap/internal/model"
)

// Thin lobby CRUD around the session coordinator: creating, joining,
// listing and deleting rooms. Gameplay transitions live in usecase_game.

//go:generate mockery --name=RoomRepository --output=./mocks/room --filename=repository.go
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	ByCode(ctx context.Context, code string) (model.Room, error)
	ListOpen(ctx context.Context) ([]model.Room, error)
	Delete(ctx context.Context, roomID int64) error
}

//go:generate mockery --name=PlayerRepository --output=./mocks/player --filename=repository.go
type PlayerRepository interface {
	Create(ctx context.Context, player *model.Player) error
	ByRoom(ctx context.Context, roomID int64) ([]*model.Player, error)
	DeleteByRoom(ctx context.Context, roomID int64) error
}

type Broadcaster interface {
	BroadcastToRoom(roomCode string, event any)
}

type RoomClosedEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type Defaults struct {
	MaxPlayers   int
	RoundsTotal  int
	TimePerRound int
}

type CreateParams struct {
	Name         string
	Code         string
	MaxPlayers   int
	RoundsTotal  int
	TimePerRound int
	Difficulty   model.Difficulty
}

type Usecase struct {
	rooms       RoomRepository
	players     PlayerRepository
	broadcaster Broadcaster
	defaults    Defaults

	logger *slog.Logger
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func New(
	rooms RoomRepository,
	players PlayerRepository,
	broadcaster Broadcaster,
	defaults Defaults,
	opts ...UsecaseOption,
) *Usecase {
	u := &Usecase{
		rooms:       rooms,
		players:     players,
		broadcaster: broadcaster,
		defaults:    defaults,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Create registers a new Waiting room under a human-entered code. The
// caller becomes the room creator but joins like everybody else.
func (u *Usecase) Create(ctx context.Context, params CreateParams, creatorUserID int64) (model.Room, error) {
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return model.Room{}, model.ErrInvalidState
	}

	room := model.Room{
		Name:         params.Name,
		Code:         code,
		Status:       model.StatusWaiting,
		CreatorID:    creatorUserID,
		MaxPlayers:   params.MaxPlayers,
		RoundsTotal:  params.RoundsTotal,
		TimePerRound: params.TimePerRound,
		Difficulty:   params.Difficulty,
		CreatedAt:    time.Now(),
	}
	if room.MaxPlayers <= 0 {
		room.MaxPlayers = u.defaults.MaxPlayers
	}
	if room.RoundsTotal <= 0 {
		room.RoundsTotal = u.defaults.RoundsTotal
	}
	if room.TimePerRound <= 0 {
		room.TimePerRound = u.defaults.TimePerRound
	}
	if room.Difficulty == "" {
		room.Difficulty = model.DifficultyBasic
	}

	if err := u.rooms.Create(ctx, &room); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.Room{}, model.ErrConflict
		}
		return model.Room{}, errors.Join(model.ErrInternal, err)
	}

	return room, nil
}

func (u *Usecase) Join(ctx context.Context, code string, userID int64) (model.Player, error) {
	room, err := u.rooms.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Player{}, model.ErrNotFound
		}
		return model.Player{}, errors.Join(model.ErrInternal, err)
	}
	if room.Status != model.StatusWaiting {
		return model.Player{}, model.ErrInvalidState
	}

	players, err := u.players.ByRoom(ctx, room.ID)
	if err != nil {
		return model.Player{}, errors.Join(model.ErrInternal, err)
	}
	if room.IsFull(len(players)) {
		return model.Player{}, model.ErrInvalidState
	}
	for _, p := range players {
		if p.UserID == userID {
			return model.Player{}, model.ErrConflict
		}
	}

	player := model.Player{
		UserID:   userID,
		RoomID:   room.ID,
		Role:     model.RoleWaiting,
		JoinedAt: time.Now(),
	}
	if err := u.players.Create(ctx, &player); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.Player{}, model.ErrConflict
		}
		return model.Player{}, errors.Join(model.ErrInternal, err)
	}

	return player, nil
}

func (u *Usecase) Get(ctx context.Context, code string) (model.Room, []*model.Player, error) {
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

func (u *Usecase) ListOpen(ctx context.Context) ([]model.Room, error) {
	rooms, err := u.rooms.ListOpen(ctx)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	return rooms, nil
}

// Delete removes an unstarted lobby. Only the creator may do it, and only
// while the room is Waiting.
func (u *Usecase) Delete(ctx context.Context, code string, callerUserID int64) error {
	room, err := u.rooms.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return errors.Join(model.ErrInternal, err)
	}
	if room.CreatorID != callerUserID {
		return model.ErrForbidden
	}
	if room.Status != model.StatusWaiting {
		return model.ErrInvalidState
	}

	if err := u.players.DeleteByRoom(ctx, room.ID); err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	if err := u.rooms.Delete(ctx, room.ID); err != nil {
		return errors.Join(model.ErrInternal, err)
	}

	u.broadcaster.BroadcastToRoom(code, RoomClosedEvent{Type: "room_closed", Code: code})

	return nil
}
