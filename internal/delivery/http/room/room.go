package http_room

import (
	"log/slog"
	"net/http"

	http_common "github.com/Debukan/SpeechTrap/internal/delivery/http/common"
	http_auth_middleware "github.com/Debukan/SpeechTrap/internal/delivery/http/middleware/auth"
	"github.com/Debukan/SpeechTrap/internal/model"
	usecase_room "github.com/Debukan/SpeechTrap/internal/usecase/room"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	uc   *usecase_room.Usecase
	auth *http_auth_middleware.Middleware

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(uc *usecase_room.Usecase,
	auth *http_auth_middleware.Middleware,
	opts ...ControllerOption) *Controller {
	c := &Controller{
		uc:     uc,
		auth:   auth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms", c.auth.AuthRequired())
	rooms.POST("", c.create)
	rooms.GET("", c.list)

	room := router.Group("/rooms/:code", c.auth.AuthRequired())
	room.GET("", c.get)
	room.POST("/join", c.join)
	room.DELETE("", c.delete)
}

type createRequestDTO struct {
	Name         string `json:"name"`
	Code         string `json:"code" binding:"required"`
	MaxPlayers   int    `json:"maxPlayers"`
	RoundsTotal  int    `json:"roundsTotal"`
	TimePerRound int    `json:"timePerRound"`
	Difficulty   string `json:"difficulty"`
}

type roomDTO struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	MaxPlayers   int    `json:"maxPlayers"`
	CurrentRound int    `json:"round"`
	RoundsTotal  int    `json:"roundsTotal"`
	TimePerRound int    `json:"timePerRound"`
	Difficulty   string `json:"difficulty"`
	PlayerCount  int    `json:"playerCount"`
}

type playerDTO struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Score  int    `json:"score"`
	Total  int    `json:"scoreTotal"`
}

func toRoomDTO(room model.Room, playerCount int) roomDTO {
	return roomDTO{
		Code:         room.Code,
		Name:         room.Name,
		Status:       room.Status,
		MaxPlayers:   room.MaxPlayers,
		CurrentRound: room.CurrentRound,
		RoundsTotal:  room.RoundsTotal,
		TimePerRound: room.TimePerRound,
		Difficulty:   room.Difficulty,
		PlayerCount:  playerCount,
	}
}

func (c *Controller) create(ctx *gin.Context) {
	var req createRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "incorrect request"})
		return
	}

	room, err := c.uc.Create(ctx.Request.Context(), usecase_room.CreateParams{
		Name:         req.Name,
		Code:         req.Code,
		MaxPlayers:   req.MaxPlayers,
		RoundsTotal:  req.RoundsTotal,
		TimePerRound: req.TimePerRound,
		Difficulty:   req.Difficulty,
	}, http_auth_middleware.CallerID(ctx))
	if err != nil {
		c.logger.Error("failed to create room", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, toRoomDTO(room, 0))
}

func (c *Controller) list(ctx *gin.Context) {
	rooms, err := c.uc.ListOpen(ctx.Request.Context())
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room, 0))
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) get(ctx *gin.Context) {
	room, players, err := c.uc.Get(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	out := struct {
		roomDTO
		Players []playerDTO `json:"players"`
	}{
		roomDTO: toRoomDTO(room, len(players)),
		Players: make([]playerDTO, 0, len(players)),
	}
	for _, p := range players {
		out.Players = append(out.Players, playerDTO{
			UserID: p.UserID,
			Name:   p.Name,
			Role:   p.Role,
			Score:  p.Score,
			Total:  p.ScoreTotal,
		})
	}

	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) join(ctx *gin.Context) {
	_, err := c.uc.Join(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}

func (c *Controller) delete(ctx *gin.Context) {
	err := c.uc.Delete(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}
