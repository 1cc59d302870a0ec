package ws_game

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Debukan/SpeechTrap/internal/model"
	usecase_game "github.com/Debukan/SpeechTrap/internal/usecase/game"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameService is the slice of the coordinator the socket needs: room
// validation plus the initial payloads for a fresh connection.
type GameService interface {
	ChatSender
	GameState(ctx context.Context, code string) (usecase_game.GameStateEvent, error)
	ChatHistory(ctx context.Context, code string) ([]model.ChatMessage, error)
}

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type Controller struct {
	hub    *Hub
	game   GameService
	tokens TokenResolver

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func NewController(hub *Hub, game GameService, tokens TokenResolver, opts ...ControllerOption) *Controller {
	c := &Controller{
		hub:    hub,
		game:   game,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rooms/:code/ws", c.connect)
}

func (c *Controller) connect(ctx *gin.Context) {
	code := ctx.Param("code")

	userID, err := c.tokens.Resolve(ctx.Request.Context(), ctx.Query("token"))
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	state, err := c.game.GameState(ctx.Request.Context(), code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	client := &Client{
		Hub:      c.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		UserID:   userID,
		RoomCode: code,
	}
	c.hub.RegisterClient(client)

	go c.hub.StartClientWriting(client)
	go c.hub.StartClientReading(client, c.game)

	c.hub.SendToClient(client, state)
	c.sendChatHistory(client, code)
}

func (c *Controller) sendChatHistory(client *Client, code string) {
	msgs, err := c.game.ChatHistory(context.Background(), code)
	if err != nil {
		c.logger.Error("chat history fetch failed", "room", code, "error", err)
		return
	}
	for _, msg := range msgs {
		c.hub.SendToClient(client, usecase_game.ChatMessageEvent{
			Type:      usecase_game.EventChatMessage,
			UserID:    msg.UserID,
			Username:  msg.Username,
			Text:      msg.Text,
			Timestamp: msg.CreatedAt.Format(time.RFC3339),
			IsHistory: true,
		})
	}
}
