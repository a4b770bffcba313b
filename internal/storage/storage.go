package storage

import (
	"context"
	"errors"

	"github.com/xaenox/scribly/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Storage remembers the credential of each chat between restarts.
type Storage interface {
	GetSession(ctx context.Context, chatID int64) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	TouchSession(ctx context.Context, chatID int64) error
	DeleteSession(ctx context.Context, chatID int64) error
	Close() error
}
