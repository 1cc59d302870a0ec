package usecase_game

import (
	"context"
	"testing"
	"time"

	"github.com/Debukan/SpeechTrap/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type roomRepoMock struct{ mock.Mock }

func (m *roomRepoMock) ByCode(ctx context.Context, code string) (model.Room, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *roomRepoMock) Save(ctx context.Context, room *model.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *roomRepoMock) Delete(ctx context.Context, roomID int64) error {
	return m.Called(ctx, roomID).Error(0)
}

type playerRepoMock struct{ mock.Mock }

func (m *playerRepoMock) ByRoom(ctx context.Context, roomID int64) ([]*model.Player, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]*model.Player), args.Error(1)
}

func (m *playerRepoMock) SaveAll(ctx context.Context, players []*model.Player) error {
	return m.Called(ctx, players).Error(0)
}

func (m *playerRepoMock) Delete(ctx context.Context, playerID int64) error {
	return m.Called(ctx, playerID).Error(0)
}

func (m *playerRepoMock) DeleteByRoom(ctx context.Context, roomID int64) error {
	return m.Called(ctx, roomID).Error(0)
}

type wordProviderMock struct{ mock.Mock }

func (m *wordProviderMock) Random(ctx context.Context, difficulty model.Difficulty) (model.Word, error) {
	args := m.Called(ctx, difficulty)
	return args.Get(0).(model.Word), args.Error(1)
}

func (m *wordProviderMock) Next(ctx context.Context, excludeID int64, difficulty model.Difficulty) (model.Word, error) {
	args := m.Called(ctx, excludeID, difficulty)
	return args.Get(0).(model.Word), args.Error(1)
}

func (m *wordProviderMock) ByID(ctx context.Context, id int64) (model.Word, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Word), args.Error(1)
}

func (m *wordProviderMock) UpdateStats(ctx context.Context, id int64, success bool) error {
	return m.Called(ctx, id, success).Error(0)
}

type chatRepoMock struct{ mock.Mock }

func (m *chatRepoMock) Save(ctx context.Context, msg model.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *chatRepoMock) History(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	return args.Get(0).([]model.ChatMessage), args.Error(1)
}

type privateEvent struct {
	userID int64
	event  any
}

// broadcastRecorder captures fan-out instead of pushing it through real
// sockets.
type broadcastRecorder struct {
	roomEvents []any
	excluded   []int64
	private    []privateEvent
}

func (b *broadcastRecorder) BroadcastToRoom(_ string, event any) {
	b.roomEvents = append(b.roomEvents, event)
}

func (b *broadcastRecorder) BroadcastToRoomExcept(_ string, event any, excludeUserID int64) {
	b.roomEvents = append(b.roomEvents, event)
	b.excluded = append(b.excluded, excludeUserID)
}

func (b *broadcastRecorder) SendToUser(userID int64, event any) {
	b.private = append(b.private, privateEvent{userID: userID, event: event})
}

type timerRecorder struct {
	armed     []time.Duration
	cancels   int
	remaining time.Duration
	gen       uint64
	active    bool
}

func (t *timerRecorder) Arm(_ string, d time.Duration) {
	t.armed = append(t.armed, d)
	t.remaining = d
	t.gen++
	t.active = true
}

func (t *timerRecorder) Consume(_ string, gen uint64) bool {
	if !t.active || gen != t.gen {
		return false
	}
	t.active = false
	return true
}

func (t *timerRecorder) Cancel(_ string) {
	t.cancels++
	t.active = false
}

func (t *timerRecorder) Remaining(_ string) (time.Duration, bool) {
	return t.remaining, t.active
}

type resources struct {
	usecase *Usecase
	rooms   *roomRepoMock
	players *playerRepoMock
	words   *wordProviderMock
	chat    *chatRepoMock
	hub     *broadcastRecorder
	timers  *timerRecorder
	ctx     context.Context
}

func initResources(_ provider.T) *resources {
	r := &resources{
		rooms:   &roomRepoMock{},
		players: &playerRepoMock{},
		words:   &wordProviderMock{},
		chat:    &chatRepoMock{},
		hub:     &broadcastRecorder{},
		timers:  &timerRecorder{},
		ctx:     context.Background(),
	}
	// An hour-long push interval keeps the state loop out of unit tests.
	r.usecase = New(r.rooms, r.players, r.words, r.chat, r.hub, r.timers,
		WithPushInterval(time.Hour))
	return r
}

func (r *resources) assertExpectations(t provider.T) {
	r.rooms.AssertExpectations(t)
	r.players.AssertExpectations(t)
	r.words.AssertExpectations(t)
	r.chat.AssertExpectations(t)
}

const roomCode = "ROOM42"

func wordIDRef(id int64) *int64 { return &id }

func waitingRoom() model.Room {
	return model.Room{
		ID:           1,
		Name:         "friday night",
		Code:         roomCode,
		Status:       model.StatusWaiting,
		CreatorID:    10,
		MaxPlayers:   8,
		RoundsTotal:  10,
		TimePerRound: 60,
		Difficulty:   model.DifficultyBasic,
	}
}

func playingRoom(round int) model.Room {
	room := waitingRoom()
	room.Status = model.StatusPlaying
	room.CurrentRound = round
	room.CurrentWordID = wordIDRef(7)
	return room
}

func lobbyPlayers() []*model.Player {
	return []*model.Player{
		{ID: 1, UserID: 10, RoomID: 1, Name: "ann", Role: model.RoleWaiting},
		{ID: 2, UserID: 11, RoomID: 1, Name: "bob", Role: model.RoleWaiting},
	}
}

func midGamePlayers() []*model.Player {
	return []*model.Player{
		{ID: 1, UserID: 10, RoomID: 1, Name: "ann", Role: model.RoleExplaining},
		{ID: 2, UserID: 11, RoomID: 1, Name: "bob", Role: model.RoleGuessing},
	}
}

func pianoWord() model.Word {
	return model.Word{ID: 7, Word: "piano", Associations: []string{"keys", "music"}, Difficulty: model.DifficultyBasic}
}

func violinWord() model.Word {
	return model.Word{ID: 8, Word: "violin", Associations: []string{"bow", "strings"}, Difficulty: model.DifficultyBasic}
}

type UsecaseGameUnitSuite struct {
	suite.Suite
}

func (suite *UsecaseGameUnitSuite) TestStartGame(t provider.T) {
	t.Parallel()

	t.Run("Should start game and hand the first word to the explainer", func(t provider.T) {
		r := initResources(t)
		players := lobbyPlayers()
		var saved model.Room

		r.rooms.On("ByCode", r.ctx, roomCode).Return(waitingRoom(), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.words.On("Random", r.ctx, model.DifficultyBasic).Return(pianoWord(), nil).Once()
		r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).
			Run(func(args mock.Arguments) { saved = *args.Get(1).(*model.Room) }).
			Return(nil).Once()
		r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()

		err := r.usecase.StartGame(r.ctx, roomCode, 10)

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPlaying, saved.Status)
		assert.Equal(t, 1, saved.CurrentRound)
		if assert.NotNil(t, saved.CurrentWordID) {
			assert.Equal(t, int64(7), *saved.CurrentWordID)
		}
		assert.Equal(t, model.RoleExplaining, players[0].Role)
		assert.Equal(t, model.RoleGuessing, players[1].Role)

		assert.Equal(t, []time.Duration{60 * time.Second}, r.timers.armed)

		if assert.Len(t, r.hub.roomEvents, 1) {
			started := r.hub.roomEvents[0].(GameStartedEvent)
			assert.Equal(t, EventGameStarted, started.Type)
			assert.Equal(t, 1, started.Round)
			assert.Equal(t, int64(10), started.CurrentPlayer)
		}
		if assert.Len(t, r.hub.private, 1) {
			assert.Equal(t, int64(10), r.hub.private[0].userID)
			reveal := r.hub.private[0].event.(ExplainerStateEvent)
			assert.Equal(t, "piano", reveal.Word)
			assert.Equal(t, []string{"keys", "music"}, reveal.Associations)
		}
		r.assertExpectations(t)
	})

	testCases := []struct {
		name          string
		room          model.Room
		players       []*model.Player
		caller        int64
		expectedError error
	}{
		{
			name:          "Should reject start by non-creator",
			room:          waitingRoom(),
			players:       lobbyPlayers(),
			caller:        11,
			expectedError: model.ErrForbidden,
		},
		{
			name:          "Should reject start with a single player",
			room:          waitingRoom(),
			players:       lobbyPlayers()[:1],
			caller:        10,
			expectedError: model.ErrInsufficientPlayers,
		},
		{
			name:          "Should reject start on a running game",
			room:          playingRoom(3),
			players:       midGamePlayers(),
			caller:        10,
			expectedError: model.ErrInvalidState,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			r := initResources(t)
			r.rooms.On("ByCode", r.ctx, roomCode).Return(tc.room, nil).Once()
			r.players.On("ByRoom", r.ctx, int64(1)).Return(tc.players, nil).Once()

			err := r.usecase.StartGame(r.ctx, roomCode, tc.caller)

			assert.ErrorIs(t, err, tc.expectedError)
			assert.Empty(t, r.timers.armed)
			assert.Empty(t, r.hub.roomEvents)
			r.assertExpectations(t)
		})
	}

	t.Run("Should report missing room", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(model.Room{}, model.ErrNotFound).Once()

		err := r.usecase.StartGame(r.ctx, roomCode, 10)

		assert.ErrorIs(t, err, model.ErrNotFound)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestSubmitGuessCorrect(t provider.T) {
	t.Parallel()

	r := initResources(t)
	players := midGamePlayers()
	var saved model.Room

	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
	r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
	r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()
	r.words.On("Next", r.ctx, int64(7), model.DifficultyBasic).Return(violinWord(), nil).Once()
	r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).
		Run(func(args mock.Arguments) { saved = *args.Get(1).(*model.Room) }).
		Return(nil).Once()
	r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()
	r.words.On("UpdateStats", r.ctx, int64(7), true).Return(nil).Once()

	reply, err := r.usecase.SubmitGuess(r.ctx, roomCode, 11, "  Piano ")

	assert.NoError(t, err)
	assert.True(t, reply.Correct)
	assert.Equal(t, 10, reply.Score)

	assert.Equal(t, 10, players[1].Score)
	assert.Equal(t, model.RoleExplaining, players[1].Role)
	assert.Equal(t, 5, players[0].Score)
	assert.Equal(t, model.RoleGuessing, players[0].Role)

	assert.Equal(t, 2, saved.CurrentRound)
	if assert.NotNil(t, saved.CurrentWordID) {
		assert.Equal(t, int64(8), *saved.CurrentWordID)
	}

	assert.Equal(t, []time.Duration{60 * time.Second}, r.timers.armed)

	if assert.Len(t, r.hub.roomEvents, 2) {
		correct := r.hub.roomEvents[0].(CorrectGuessEvent)
		assert.Equal(t, int64(11), correct.UserID)
		assert.Equal(t, "piano", correct.Word)
		assert.Equal(t, 10, correct.GuesserScore)
		assert.Equal(t, 5, correct.ExplainerScore)

		turn := r.hub.roomEvents[1].(TurnChangedEvent)
		assert.Equal(t, 2, turn.Round)
		assert.Equal(t, int64(11), turn.CurrentPlayer)
		assert.Equal(t, "correct_guess", turn.Reason)
	}
	if assert.Len(t, r.hub.private, 1) {
		assert.Equal(t, int64(11), r.hub.private[0].userID)
		assert.Equal(t, "violin", r.hub.private[0].event.(ExplainerStateEvent).Word)
	}
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestSubmitGuessWrong(t provider.T) {
	t.Parallel()

	r := initResources(t)
	players := midGamePlayers()

	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
	r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
	r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()
	r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).Return(nil).Once()
	r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()
	r.words.On("UpdateStats", r.ctx, int64(7), false).Return(nil).Once()

	reply, err := r.usecase.SubmitGuess(r.ctx, roomCode, 11, "flute")

	assert.NoError(t, err)
	assert.False(t, reply.Correct)
	assert.Equal(t, 0, reply.Score)
	assert.Equal(t, 1, players[1].WrongAnswers)
	assert.Equal(t, model.RoleGuessing, players[1].Role)

	assert.Empty(t, r.timers.armed)

	if assert.Len(t, r.hub.roomEvents, 1) {
		wrong := r.hub.roomEvents[0].(WrongGuessEvent)
		assert.Equal(t, int64(11), wrong.UserID)
		assert.Equal(t, "flute", wrong.Guess)
	}
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestSubmitGuessOnLastRoundFinishesGame(t provider.T) {
	t.Parallel()

	r := initResources(t)
	players := midGamePlayers()
	players[0].Score = 10
	players[1].Score = 10
	var saved model.Room

	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(10), nil).Once()
	r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
	r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()
	r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).
		Run(func(args mock.Arguments) { saved = *args.Get(1).(*model.Room) }).
		Return(nil).Once()
	r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()
	r.words.On("UpdateStats", r.ctx, int64(7), true).Return(nil).Once()

	reply, err := r.usecase.SubmitGuess(r.ctx, roomCode, 11, "piano")

	assert.NoError(t, err)
	assert.True(t, reply.Correct)

	assert.Equal(t, model.StatusWaiting, saved.Status)
	assert.Equal(t, 0, saved.CurrentRound)
	assert.Nil(t, saved.CurrentWordID)
	assert.Equal(t, 15, players[0].ScoreTotal)
	assert.Equal(t, 20, players[1].ScoreTotal)

	assert.Equal(t, 1, r.timers.cancels)
	assert.Empty(t, r.timers.armed)

	if assert.Len(t, r.hub.roomEvents, 2) {
		finished := r.hub.roomEvents[1].(GameFinishedEvent)
		assert.Equal(t, int64(11), finished.WinnerID)
	}
	assert.Empty(t, r.hub.private)
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestSubmitGuessErrors(t provider.T) {
	t.Parallel()

	t.Run("Should refuse guesses from the explainer", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()
		r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()

		_, err := r.usecase.SubmitGuess(r.ctx, roomCode, 10, "piano")

		assert.ErrorIs(t, err, model.ErrForbidden)
		r.assertExpectations(t)
	})

	t.Run("Should refuse guesses outside of a running game", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(waitingRoom(), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(lobbyPlayers(), nil).Once()

		_, err := r.usecase.SubmitGuess(r.ctx, roomCode, 11, "piano")

		assert.ErrorIs(t, err, model.ErrInvalidState)
		r.assertExpectations(t)
	})

	t.Run("Should refuse guesses from a non-member", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()
		r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()

		_, err := r.usecase.SubmitGuess(r.ctx, roomCode, 99, "piano")

		assert.ErrorIs(t, err, model.ErrNotFound)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestEndTurn(t provider.T) {
	t.Parallel()

	t.Run("Should rotate the explainer and re-arm the timer", func(t provider.T) {
		r := initResources(t)
		players := midGamePlayers()
		var saved model.Room

		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.words.On("Next", r.ctx, int64(7), model.DifficultyBasic).Return(violinWord(), nil).Once()
		r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).
			Run(func(args mock.Arguments) { saved = *args.Get(1).(*model.Room) }).
			Return(nil).Once()
		r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()

		err := r.usecase.EndTurn(r.ctx, roomCode, 10)

		assert.NoError(t, err)
		assert.Equal(t, 2, saved.CurrentRound)
		assert.Equal(t, model.RoleGuessing, players[0].Role)
		assert.Equal(t, model.RoleExplaining, players[1].Role)
		assert.Equal(t, []time.Duration{60 * time.Second}, r.timers.armed)

		if assert.Len(t, r.hub.roomEvents, 1) {
			turn := r.hub.roomEvents[0].(TurnChangedEvent)
			assert.Equal(t, int64(11), turn.CurrentPlayer)
			assert.Equal(t, "end_turn", turn.Reason)
		}
		if assert.Len(t, r.hub.private, 1) {
			assert.Equal(t, int64(11), r.hub.private[0].userID)
		}
		r.assertExpectations(t)
	})

	t.Run("Should refuse end turn from a guesser", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()

		err := r.usecase.EndTurn(r.ctx, roomCode, 11)

		assert.ErrorIs(t, err, model.ErrForbidden)
		r.assertExpectations(t)
	})

	t.Run("Should refuse end turn outside of a running game", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(waitingRoom(), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(lobbyPlayers(), nil).Once()

		err := r.usecase.EndTurn(r.ctx, roomCode, 10)

		assert.ErrorIs(t, err, model.ErrInvalidState)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestHandleRoundTimeout(t provider.T) {
	t.Parallel()

	t.Run("Should advance the turn when the round runs out", func(t provider.T) {
		r := initResources(t)
		players := midGamePlayers()
		var saved model.Room

		r.timers.Arm(roomCode, time.Minute)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.words.On("Next", r.ctx, int64(7), model.DifficultyBasic).Return(violinWord(), nil).Once()
		r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).
			Run(func(args mock.Arguments) { saved = *args.Get(1).(*model.Room) }).
			Return(nil).Once()
		r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()

		r.usecase.HandleRoundTimeout(roomCode, r.timers.gen)

		assert.Equal(t, 2, saved.CurrentRound)
		if assert.Len(t, r.hub.roomEvents, 1) {
			turn := r.hub.roomEvents[0].(TurnChangedEvent)
			assert.Equal(t, "timeout", turn.Reason)
			assert.Equal(t, int64(11), turn.CurrentPlayer)
		}
		r.assertExpectations(t)
	})

	t.Run("Should finish the game on the last round", func(t provider.T) {
		r := initResources(t)
		players := midGamePlayers()
		players[0].Score = 15
		players[1].Score = 10

		r.timers.Arm(roomCode, time.Minute)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(10), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).Return(nil).Once()
		r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()

		r.usecase.HandleRoundTimeout(roomCode, r.timers.gen)

		assert.Equal(t, 15, players[0].ScoreTotal)
		assert.Equal(t, 10, players[1].ScoreTotal)
		assert.Equal(t, 1, r.timers.cancels)
		if assert.Len(t, r.hub.roomEvents, 1) {
			finished := r.hub.roomEvents[0].(GameFinishedEvent)
			assert.Equal(t, int64(10), finished.WinnerID)
		}
		r.assertExpectations(t)
	})

	t.Run("Should ignore a timeout on a room that is not playing", func(t provider.T) {
		r := initResources(t)
		r.timers.Arm(roomCode, time.Minute)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(waitingRoom(), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(lobbyPlayers(), nil).Once()

		r.usecase.HandleRoundTimeout(roomCode, r.timers.gen)

		assert.Empty(t, r.hub.roomEvents)
		assert.Len(t, r.timers.armed, 1)
		r.assertExpectations(t)
	})

	t.Run("Should drop an unclaimed expiry without a registered timer", func(t provider.T) {
		r := initResources(t)

		r.usecase.HandleRoundTimeout(roomCode, 1)

		assert.Empty(t, r.hub.roomEvents)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestTimeoutSupersededByCorrectGuessIsDropped(t provider.T) {
	t.Parallel()

	r := initResources(t)
	players := midGamePlayers()

	// The round-1 timer has expired, but its callback has not claimed the
	// room yet.
	r.timers.Arm(roomCode, time.Minute)
	expiredGen := r.timers.gen

	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
	r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
	r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()
	r.words.On("Next", r.ctx, int64(7), model.DifficultyBasic).Return(violinWord(), nil).Once()
	r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).Return(nil).Once()
	r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()
	r.words.On("UpdateStats", r.ctx, int64(7), true).Return(nil).Once()

	reply, err := r.usecase.SubmitGuess(r.ctx, roomCode, 11, "piano")
	assert.NoError(t, err)
	assert.True(t, reply.Correct)

	// The guess re-armed the timer, superseding the expired generation.
	// The late claim must lose; a second advance would rotate the
	// explainer role straight off the correct guesser.
	r.usecase.HandleRoundTimeout(roomCode, expiredGen)

	assert.Len(t, r.hub.roomEvents, 2)
	assert.Equal(t, model.RoleExplaining, players[1].Role)
	assert.Equal(t, model.RoleGuessing, players[0].Role)
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestLeaveGame(t provider.T) {
	t.Parallel()

	t.Run("Should hand the explainer role to the next player", func(t provider.T) {
		r := initResources(t)
		players := []*model.Player{
			{ID: 1, UserID: 10, RoomID: 1, Name: "ann", Role: model.RoleExplaining},
			{ID: 2, UserID: 11, RoomID: 1, Name: "bob", Role: model.RoleGuessing},
			{ID: 3, UserID: 12, RoomID: 1, Name: "kim", Role: model.RoleGuessing},
		}

		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(3), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.players.On("Delete", r.ctx, int64(1)).Return(nil).Once()
		r.rooms.On("Save", r.ctx, mock.AnythingOfType("*model.Room")).Return(nil).Once()
		r.players.On("SaveAll", r.ctx, mock.Anything).Return(nil).Once()
		r.words.On("ByID", r.ctx, int64(7)).Return(pianoWord(), nil).Once()

		err := r.usecase.LeaveGame(r.ctx, roomCode, 10)

		assert.NoError(t, err)
		assert.Equal(t, model.RoleExplaining, players[1].Role)
		assert.Zero(t, r.timers.cancels)

		if assert.Len(t, r.hub.roomEvents, 1) {
			left := r.hub.roomEvents[0].(PlayerLeftEvent)
			assert.Equal(t, int64(10), left.UserID)
			assert.Equal(t, int64(11), left.CurrentPlayer)
		}
		if assert.Len(t, r.hub.private, 1) {
			assert.Equal(t, int64(11), r.hub.private[0].userID)
			assert.Equal(t, "piano", r.hub.private[0].event.(ExplainerStateEvent).Word)
		}
		r.assertExpectations(t)
	})

	t.Run("Should fold the survivor and close the room", func(t provider.T) {
		r := initResources(t)
		players := midGamePlayers()
		players[1].Score = 10

		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(3), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.players.On("DeleteByRoom", r.ctx, int64(1)).Return(nil).Once()
		r.rooms.On("Delete", r.ctx, int64(1)).Return(nil).Once()

		err := r.usecase.LeaveGame(r.ctx, roomCode, 10)

		assert.NoError(t, err)
		assert.Equal(t, 10, players[1].ScoreTotal)
		assert.Equal(t, 1, r.timers.cancels)

		if assert.Len(t, r.hub.roomEvents, 1) {
			closed := r.hub.roomEvents[0].(RoomClosedEvent)
			assert.Equal(t, roomCode, closed.Code)
		}
		r.assertExpectations(t)
	})

	t.Run("Should destroy the room when the last player leaves", func(t provider.T) {
		r := initResources(t)
		players := []*model.Player{
			{ID: 1, UserID: 10, RoomID: 1, Name: "ann", Role: model.RoleWaiting},
		}

		r.rooms.On("ByCode", r.ctx, roomCode).Return(waitingRoom(), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(players, nil).Once()
		r.players.On("DeleteByRoom", r.ctx, int64(1)).Return(nil).Once()
		r.rooms.On("Delete", r.ctx, int64(1)).Return(nil).Once()

		err := r.usecase.LeaveGame(r.ctx, roomCode, 10)

		assert.NoError(t, err)
		if assert.Len(t, r.hub.roomEvents, 1) {
			assert.IsType(t, RoomClosedEvent{}, r.hub.roomEvents[0])
		}
		r.assertExpectations(t)
	})

	t.Run("Should report an unknown leaver", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(3), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()

		err := r.usecase.LeaveGame(r.ctx, roomCode, 99)

		assert.ErrorIs(t, err, model.ErrNotFound)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestSendChat(t provider.T) {
	t.Parallel()

	t.Run("Should persist the message and echo it to the rest of the room", func(t provider.T) {
		r := initResources(t)
		var saved model.ChatMessage

		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()
		r.chat.On("Save", r.ctx, mock.AnythingOfType("model.ChatMessage")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(model.ChatMessage) }).
			Return(nil).Once()

		err := r.usecase.SendChat(r.ctx, roomCode, 11, "is it a piano?")

		assert.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "bob", saved.Username)

		if assert.Len(t, r.hub.roomEvents, 1) {
			msg := r.hub.roomEvents[0].(ChatMessageEvent)
			assert.Equal(t, "is it a piano?", msg.Text)
			assert.Equal(t, int64(11), msg.UserID)
		}
		assert.Equal(t, []int64{11}, r.hub.excluded)
		r.assertExpectations(t)
	})

	t.Run("Should refuse chat from a non-member", func(t provider.T) {
		r := initResources(t)
		r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
		r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()

		err := r.usecase.SendChat(r.ctx, roomCode, 99, "hello")

		assert.ErrorIs(t, err, model.ErrForbidden)
		r.assertExpectations(t)
	})
}

func (suite *UsecaseGameUnitSuite) TestChatHistoryIsOldestFirst(t provider.T) {
	t.Parallel()

	r := initResources(t)
	newestFirst := []model.ChatMessage{
		{ID: "3", Text: "third"},
		{ID: "2", Text: "second"},
		{ID: "1", Text: "first"},
	}

	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(1), nil).Once()
	r.chat.On("History", r.ctx, int64(1), 50).Return(newestFirst, nil).Once()

	msgs, err := r.usecase.ChatHistory(r.ctx, roomCode)

	assert.NoError(t, err)
	if assert.Len(t, msgs, 3) {
		assert.Equal(t, "first", msgs[0].Text)
		assert.Equal(t, "third", msgs[2].Text)
	}
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestGameStateRecoversLostTimer(t provider.T) {
	t.Parallel()

	r := initResources(t)
	r.rooms.On("ByCode", r.ctx, roomCode).Return(playingRoom(4), nil).Once()
	r.players.On("ByRoom", r.ctx, int64(1)).Return(midGamePlayers(), nil).Once()

	state, err := r.usecase.GameState(r.ctx, roomCode)

	assert.NoError(t, err)
	assert.Equal(t, model.StatusPlaying, state.Status)
	assert.Equal(t, 4, state.Round)
	assert.Equal(t, int64(10), state.CurrentPlayer)

	// No timer was armed for this playing room; the read path restores a
	// full one instead of reporting a dead countdown.
	assert.Equal(t, 60, state.TimeLeft)
	assert.Equal(t, []time.Duration{60 * time.Second}, r.timers.armed)
	r.assertExpectations(t)
}

func (suite *UsecaseGameUnitSuite) TestTimeLeftReportsWithoutArming(t provider.T) {
	t.Parallel()

	r := initResources(t)
	room := playingRoom(2)

	// Unlocked readers (the periodic push loop) report a full round for a
	// missing timer but never arm one; arming belongs to locked paths.
	assert.Equal(t, 60, r.usecase.timeLeft(&room))
	assert.Empty(t, r.timers.armed)
}

func TestGameUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(UsecaseGameUnitSuite))
}
