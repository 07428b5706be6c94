// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/dutchpay/internal/models"
	"github.com/mmynk/dutchpay/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession writes the full session snapshot in one transaction,
// replacing whatever was stored before.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}
	if session.UpdatedAt == 0 {
		session.UpdatedAt = session.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, phase, mode, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			mode = excluded.mode,
			total = excluded.total,
			updated_at = excluded.updated_at`,
		session.ID, string(session.Phase), string(session.Mode), session.Total, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	// Children are rewritten wholesale; allocations go first because they
	// reference both items and participants.
	for _, table := range []string{"allocations", "line_items", "participants"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", session.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, phone := range session.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (session_id, position, phone) VALUES (?, ?, ?)",
			session.ID, i, phone,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for i, item := range session.Items {
		var quantityCap sql.NullInt64
		if item.Capped() {
			quantityCap = sql.NullInt64{Int64: int64(item.QuantityCap), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO line_items (session_id, position, name, unit_price, quantity, quantity_cap) VALUES (?, ?, ?, ?, ?, ?)",
			session.ID, i, item.Name, item.UnitPrice, item.Quantity, quantityCap,
		)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	for itemIndex, phone := range session.Allocations {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO allocations (session_id, item_position, phone) VALUES (?, ?, ?)",
			session.ID, itemIndex, phone,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID, including participants, line items
// and allocations.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{Allocations: make(map[int]string)}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, phase, mode, total, created_at, updated_at FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&session.ID, &session.Phase, &session.Mode, &session.Total, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.loadParticipants(ctx, session); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, session); err != nil {
		return nil, err
	}
	if err := s.loadAllocations(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, session *models.Session) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phone FROM participants WHERE session_id = ? ORDER BY position",
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		session.Participants = append(session.Participants, phone)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, session *models.Session) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, unit_price, quantity, quantity_cap FROM line_items WHERE session_id = ? ORDER BY position",
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.LineItem
		var quantityCap sql.NullInt64
		if err := rows.Scan(&item.Name, &item.UnitPrice, &item.Quantity, &quantityCap); err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		if quantityCap.Valid {
			item.QuantityCap = int(quantityCap.Int64)
		}
		session.Items = append(session.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate line items: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadAllocations(ctx context.Context, session *models.Session) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_position, phone FROM allocations WHERE session_id = ?",
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemIndex int
		var phone string
		if err := rows.Scan(&itemIndex, &phone); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		session.Allocations[itemIndex] = phone
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return nil
}

// DeleteSession removes a session; child rows cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	return nil
}

// ExpiredSessions returns the IDs of sessions created before createdBefore.
func (s *SQLiteStore) ExpiredSessions(ctx context.Context, createdBefore int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM sessions WHERE created_at < ? ORDER BY created_at",
		createdBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return ids, nil
}
