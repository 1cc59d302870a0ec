package service_auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/Debukan/SpeechTrap/internal/model"
)

// Resolves opaque session tokens to user ids. Issuing tokens is the
// responsibility of the account service; this side only validates.

var ErrInvalidToken = errors.New("invalid session token")

type SessionCacher interface {
	Get(key string) (string, error)
}

type Service struct {
	sessions SessionCacher
}

func New(sessions SessionCacher) *Service {
	return &Service{sessions: sessions}
}

func (s *Service) Resolve(_ context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	val, err := s.sessions.Get(token)
	if err != nil {
		return 0, errors.Join(model.ErrInternal, err)
	}
	if val == "" {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
