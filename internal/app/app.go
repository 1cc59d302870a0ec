package app

import (
	"time"

	"github.com/Debukan/SpeechTrap/internal/config"
	http_game "github.com/Debukan/SpeechTrap/internal/delivery/http/game"
	http_init "github.com/Debukan/SpeechTrap/internal/delivery/http/init"
	http_auth_middleware "github.com/Debukan/SpeechTrap/internal/delivery/http/middleware/auth"
	http_room "github.com/Debukan/SpeechTrap/internal/delivery/http/room"
	ws_game "github.com/Debukan/SpeechTrap/internal/delivery/ws/game"
	infra_postgres_chat "github.com/Debukan/SpeechTrap/internal/infra/postgres/chat"
	infra_pg_init "github.com/Debukan/SpeechTrap/internal/infra/postgres/init"
	infra_postgres_player "github.com/Debukan/SpeechTrap/internal/infra/postgres/player"
	infra_postgres_room "github.com/Debukan/SpeechTrap/internal/infra/postgres/room"
	infra_postgres_word "github.com/Debukan/SpeechTrap/internal/infra/postgres/word"
	infra_redis_init "github.com/Debukan/SpeechTrap/internal/infra/redis/init"
	infra_session_cache "github.com/Debukan/SpeechTrap/internal/infra/redis/session"
	service_auth "github.com/Debukan/SpeechTrap/internal/service/auth"
	service_roundtimer "github.com/Debukan/SpeechTrap/internal/service/roundtimer"
	usecase_game "github.com/Debukan/SpeechTrap/internal/usecase/game"
	usecase_room "github.com/Debukan/SpeechTrap/internal/usecase/room"
)

func Go(cfg *config.Config) {
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)

	roomRepository := infra_postgres_room.New(pgConn)
	playerRepository := infra_postgres_player.New(pgConn)
	wordRepository := infra_postgres_word.New(pgConn)
	chatRepository := infra_postgres_chat.New(pgConn)

	hub := ws_game.NewHub()
	scheduler := service_roundtimer.New()

	gameUC := usecase_game.New(
		roomRepository,
		playerRepository,
		wordRepository,
		chatRepository,
		hub,
		scheduler,
		usecase_game.WithPushInterval(time.Duration(cfg.Game.PushIntervalSec)*time.Second),
		usecase_game.WithChatHistorySize(cfg.Game.ChatHistorySize),
	)
	scheduler.Bind(gameUC.HandleRoundTimeout)

	roomUC := usecase_room.New(roomRepository, playerRepository, hub, usecase_room.Defaults{
		MaxPlayers:   cfg.Game.MaxPlayers,
		RoundsTotal:  cfg.Game.RoundsTotal,
		TimePerRound: cfg.Game.TimePerRound,
	})

	sessionCache := infra_session_cache.New(redisConn, "session_cache")
	authService := service_auth.New(sessionCache)
	authMiddleware := http_auth_middleware.New(authService)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_room.New(roomUC, authMiddleware))
	controllerPool.Add(http_game.New(gameUC, authMiddleware))
	controllerPool.Add(ws_game.NewController(hub, gameUC, authService))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
