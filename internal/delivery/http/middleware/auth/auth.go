package http_auth_middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	http_common "github.com/Debukan/SpeechTrap/internal/delivery/http/common"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type Middleware struct {
	tokens TokenResolver
	logger *slog.Logger
}

func New(
	tokens TokenResolver,
) *Middleware {
	return &Middleware{
		tokens: tokens,
		logger: slog.Default(),
	}
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "missing session token",
			})
			ctx.Abort()
			return
		}

		userID, err := m.tokens.Resolve(ctx.Request.Context(), token)
		if err != nil {
			m.logger.Warn("token rejected", slog.String("error", err.Error()))
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "invalid session token",
			})
			ctx.Abort()
			return
		}

		ctx.Set(userIDKey, userID)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ctx.GetHeader("X-Session-Token")
}

// CallerID reads the resolved user id set by AuthRequired.
func CallerID(ctx *gin.Context) int64 {
	return ctx.GetInt64(userIDKey)
}
