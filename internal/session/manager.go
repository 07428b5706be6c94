package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/dutchpay/internal/receipt"
	"github.com/mmynk/dutchpay/internal/storage"
)

// DefaultAnalysisTimeout bounds a single receipt analysis call.
const DefaultAnalysisTimeout = 30 * time.Second

// DefaultIdleTimeout is how long an unused session stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

// Analyzer produces an analysis for an uploaded receipt image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, filename string) (*receipt.Analysis, error)
}

// Manager keeps live sessions, applies commands to them one at a time and
// persists every successful change.
//
// Lock order is Manager.mu before entry.mu.
type Manager struct {
	store     storage.Store
	analyzer  Analyzer
	timeout   time.Duration
	idle      time.Duration
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	s        *Session
	lastUsed time.Time
	// removed is set once the entry has left the map. Holders of a removed
	// entry must not persist it.
	removed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithAnalysisTimeout overrides DefaultAnalysisTimeout. Zero disables the
// timeout.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithIdleTimeout overrides DefaultIdleTimeout. Sweep evicts sessions unused
// for longer from memory; they are reloaded from storage on the next access.
// Zero keeps sessions in memory until they expire.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idle = d }
}

// WithRetention makes Sweep delete sessions created longer than d ago, from
// memory and storage. Zero, the default, keeps sessions forever.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) { m.retention = d }
}

// NewManager creates a manager persisting to store and analyzing receipts
// with analyzer.
func NewManager(store storage.Store, analyzer Analyzer, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		analyzer: analyzer,
		timeout:  DefaultAnalysisTimeout,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, error) {
	s := New(uuid.NewString())
	s.createdAt = m.now().Unix()
	s.updatedAt = s.createdAt
	if err := m.store.SaveSession(ctx, s.Snapshot()); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID()] = &entry{s: s, lastUsed: m.now()}
	m.mu.Unlock()

	slog.Info("Session created", "session_id", s.ID())
	return s.ID(), nil
}

// View returns the display state of a session for the active participant.
func (m *Manager) View(ctx context.Context, id, active string) (View, error) {
	e, err := m.lock(ctx, id)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()
	return e.s.View(active), nil
}

// Do applies fn to the session and persists the result. When fn fails the
// session is unchanged; when persisting fails the change is rolled back.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) error {
	e, err := m.lock(ctx, id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	before := e.s.clone()
	if err := fn(e.s); err != nil {
		return err
	}
	if err := m.store.SaveSession(ctx, e.s.Snapshot()); err != nil {
		e.s = before
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Analyze submits a receipt image for the session. The external call runs
// without holding the session, so other commands proceed meanwhile; a second
// submission is rejected until this one finishes. A session deleted during
// the call stays deleted and the result is discarded.
func (m *Manager) Analyze(ctx context.Context, id string, image []byte, filename string) error {
	e, err := m.lock(ctx, id)
	if err != nil {
		return err
	}
	err = e.s.BeginAnalysis()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	actx, cancel := ctx, context.CancelFunc(func() {})
	if m.timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	result, err := m.analyzer.Analyze(actx, image, filename)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		slog.Warn("Discarding analysis of deleted session", "session_id", id)
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return e.s.FailAnalysis(err)
	}

	before := e.s.clone()
	if err := e.s.CompleteAnalysis(result); err != nil {
		return err
	}
	if err := m.store.SaveSession(ctx, e.s.Snapshot()); err != nil {
		e.s = before
		return e.s.FailAnalysis(fmt.Errorf("failed to save session: %w", err))
	}

	slog.Info("Receipt analyzed",
		"session_id", id,
		"items", len(result.Items),
		"total", result.Total(),
	)
	return nil
}

// Delete removes a session from memory and storage. An analysis still in
// flight for it is discarded when it returns.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, live := m.sessions[id]
	if live {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return err
	}
	if live {
		e.removed = true
		delete(m.sessions, id)
	}
	slog.Info("Session deleted", "session_id", id)
	return nil
}

// Sweep deletes sessions past the retention period and evicts idle sessions
// from memory. Sessions that are busy or have an analysis in flight are
// not evicted.
func (m *Manager) Sweep(ctx context.Context) (evicted, expired int, err error) {
	now := m.now()

	if m.retention > 0 {
		ids, err := m.store.ExpiredSessions(ctx, now.Add(-m.retention).Unix())
		if err != nil {
			return 0, 0, fmt.Errorf("failed to list expired sessions: %w", err)
		}
		for _, id := range ids {
			if err := m.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
				return evicted, expired, err
			}
			expired++
		}
	}

	if m.idle > 0 {
		m.mu.Lock()
		for id, e := range m.sessions {
			if !e.mu.TryLock() {
				continue
			}
			if !e.s.AnalysisInFlight() && now.Sub(e.lastUsed) >= m.idle {
				e.removed = true
				delete(m.sessions, id)
				evicted++
			}
			e.mu.Unlock()
		}
		m.mu.Unlock()
	}

	return evicted, expired, nil
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, expired, err := m.Sweep(ctx)
			if err != nil {
				slog.Error("Session sweep failed", "error", err)
				continue
			}
			if evicted > 0 || expired > 0 {
				slog.Info("Session sweep", "evicted", evicted, "expired", expired)
			}
		}
	}
}

// Live returns the number of sessions held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// lock returns the live entry for id with its mutex held.
func (m *Manager) lock(ctx context.Context, id string) (*entry, error) {
	for {
		e, err := m.entry(ctx, id)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if e.removed {
			// Evicted or deleted after lookup; look it up again.
			e.mu.Unlock()
			continue
		}
		e.lastUsed = m.now()
		return e, nil
	}
}

// entry returns the live entry for id, loading it from storage on a miss.
// The load runs under m.mu so it cannot race with Delete.
func (m *Manager) entry(ctx context.Context, id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}

	snap, err := m.store.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	e := &entry{s: FromSnapshot(snap), lastUsed: m.now()}
	m.sessions[id] = e
	slog.Debug("Session loaded from storage", "session_id", id)
	return e, nil
}
