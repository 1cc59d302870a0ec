package http_common

import (
	"errors"
	"net/http"

	"github.com/Debukan/SpeechTrap/internal/model"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// WriteError maps the action error taxonomy onto HTTP statuses.
func WriteError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		ctx.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case errors.Is(err, model.ErrForbidden):
		ctx.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})
	case errors.Is(err, model.ErrConflict):
		ctx.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrInsufficientPlayers):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
	}
}
