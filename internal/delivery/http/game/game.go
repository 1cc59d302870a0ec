package http_game

import (
	"log/slog"
	"net/http"

	http_common "github.com/Debukan/SpeechTrap/internal/delivery/http/common"
	http_auth_middleware "github.com/Debukan/SpeechTrap/internal/delivery/http/middleware/auth"
	usecase_game "github.com/Debukan/SpeechTrap/internal/usecase/game"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	uc   *usecase_game.Usecase
	auth *http_auth_middleware.Middleware

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(uc *usecase_game.Usecase,
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
	game := router.Group("/game/:code", c.auth.AuthRequired())
	game.POST("/start", c.start)
	game.POST("/end-turn", c.endTurn)
	game.POST("/guess", c.guess)
	game.POST("/leave", c.leave)
	game.POST("/chat", c.chat)
	game.GET("/state", c.state)
}

func (c *Controller) start(ctx *gin.Context) {
	code := ctx.Param("code")

	if err := c.uc.StartGame(ctx.Request.Context(), code, http_auth_middleware.CallerID(ctx)); err != nil {
		c.logger.Warn("game start rejected",
			slog.String("room", code),
			slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}

func (c *Controller) endTurn(ctx *gin.Context) {
	if err := c.uc.EndTurn(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx)); err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}

type guessRequestDTO struct {
	Guess string `json:"guess" binding:"required"`
}

func (c *Controller) guess(ctx *gin.Context) {
	var req guessRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "incorrect request"})
		return
	}

	reply, err := c.uc.SubmitGuess(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx), req.Guess)
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, reply)
}

func (c *Controller) leave(ctx *gin.Context) {
	if err := c.uc.LeaveGame(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx)); err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}

type chatRequestDTO struct {
	Text string `json:"text" binding:"required"`
}

func (c *Controller) chat(ctx *gin.Context) {
	var req chatRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "incorrect request"})
		return
	}

	if err := c.uc.SendChat(ctx.Request.Context(), ctx.Param("code"), http_auth_middleware.CallerID(ctx), req.Text); err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusOK)
}

func (c *Controller) state(ctx *gin.Context) {
	state, err := c.uc.GameState(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, state)
}
