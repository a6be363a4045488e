package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/cache"
)

// sessionNamespace is the cache namespace for persisted sessions.
const sessionNamespace = "sessions"

// trimKeepAfterSummary is how many turns survive a summarization trim.
const trimKeepAfterSummary = 10

// StoreOptions configures a Store.
type StoreOptions struct {
	// MaxTurns is the soft history cap. Append keeps at most 2x this many
	// turns; SetSummary trims below it once a summary exists.
	MaxTurns int

	// TTL is the persistence expiry for cached sessions.
	TTL time.Duration

	Logger *slog.Logger
}

// Store keeps conversation sessions in memory with write-through cache
// persistence. Cache failures degrade to in-process state only.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cache    cache.Cache
	maxTurns int
	ttl      time.Duration
	logger   *slog.Logger
}

// NewStore creates a conversation store backed by the given cache.
func NewStore(c cache.Cache, opts StoreOptions) *Store {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 20
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	return &Store{
		sessions: make(map[string]*Session),
		cache:    c,
		maxTurns: opts.MaxTurns,
		ttl:      opts.TTL,
		logger:   opts.Logger.With("component", "memory.store"),
	}
}

// Get returns the session for the given id, creating it if needed.
// Lookup order: cache, in-process map, fresh session.
func (s *Store) Get(ctx context.Context, sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, sessionID)
}

func (s *Store) getLocked(ctx context.Context, sessionID string) *Session {
	if data, err := s.cache.Get(ctx, sessionNamespace, sessionID); err == nil {
		var session Session
		if err := json.Unmarshal(data, &session); err == nil {
			session.SessionID = sessionID
			s.sessions[sessionID] = &session
			return &session
		}
		s.logger.Warn("discarding corrupt cached session", "session_id", sessionID)
	}

	if session, ok := s.sessions[sessionID]; ok {
		return session
	}

	now := unixSeconds()
	session := &Session{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
	s.sessions[sessionID] = session
	return session
}

// Append adds a turn to the session and persists it. History is capped at
// twice MaxTurns, keeping the most recent turns.
func (s *Store) Append(ctx context.Context, sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(ctx, sessionID)
	session.Turns = append(session.Turns, NewTurn(role, content))
	session.UpdatedAt = unixSeconds()

	if limit := s.maxTurns * 2; len(session.Turns) > limit {
		session.Turns = session.Turns[len(session.Turns)-limit:]
	}

	s.persist(ctx, session)
}

// History returns the session's turns in chronological order.
func (s *Store) History(ctx context.Context, sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(ctx, sessionID)
	turns := make([]Turn, len(session.Turns))
	copy(turns, session.Turns)
	return turns
}

// Summary returns the session's rolling summary, empty if none exists.
func (s *Store) Summary(ctx context.Context, sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, sessionID).Summary
}

// SetSummary replaces the session summary. When the history has grown past
// MaxTurns the summarized turns are dropped, keeping only the most recent.
func (s *Store) SetSummary(ctx context.Context, sessionID, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.getLocked(ctx, sessionID)
	session.Summary = summary
	if len(session.Turns) > s.maxTurns {
		session.Turns = session.Turns[len(session.Turns)-trimKeepAfterSummary:]
	}
	session.UpdatedAt = unixSeconds()

	s.persist(ctx, session)
}

// Clear removes the session from memory and the cache.
func (s *Store) Clear(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	if err := s.cache.Delete(ctx, sessionNamespace, sessionID); err != nil {
		s.logger.Warn("failed to delete cached session", "session_id", sessionID, "error", err)
	}
}

// persist writes the session through to the cache. Failures are logged and
// otherwise ignored; the in-process copy remains authoritative.
func (s *Store) persist(ctx context.Context, session *Session) {
	data, err := json.Marshal(session)
	if err != nil {
		s.logger.Error("failed to encode session", "session_id", session.SessionID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, sessionNamespace, session.SessionID, data, s.ttl); err != nil {
		s.logger.Warn("failed to persist session", "session_id", session.SessionID, "error", err)
	}
}
