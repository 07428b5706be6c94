// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/dutchpay/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for session storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the session layer.
type Store interface {
	// SaveSession inserts or fully replaces a session snapshot.
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session by its ID.
	// Returns an error wrapping ErrNotFound if the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// DeleteSession removes a session and everything it owns.
	DeleteSession(ctx context.Context, sessionID string) error

	// ExpiredSessions returns the IDs of sessions created before the given
	// Unix timestamp.
	ExpiredSessions(ctx context.Context, createdBefore int64) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
