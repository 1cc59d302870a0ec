package model

import "errors"

// Action errors surfaced directly to the caller. Infra drivers translate
// database failures into these; delivery maps them onto HTTP statuses.
var (
	ErrNotFound            = errors.New("no such resource")
	ErrForbidden           = errors.New("operation not allowed for caller")
	ErrInvalidState        = errors.New("action illegal for current status")
	ErrConflict            = errors.New("resource already exists")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrInternal            = errors.New("internal error")
)
