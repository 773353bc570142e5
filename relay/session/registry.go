package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/padlink/padlink/metrics"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry owns every live Session and maps session IDs to them.
// A Session removed from the registry is destroyed; nothing may keep
// mutating it afterward.
type Registry struct {
	log *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create constructs a new empty session under a freshly generated ID
// and returns it. ID generation retries on collision, though with 4
// random bytes a collision is practically impossible at the expected
// session counts.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := generateSessionID()
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = generateSessionID()
	}

	s := newSession(id, r.log)
	r.sessions[id] = s
	metrics.ActiveSessions.Inc()

	r.log.Info("session created",
		zap.String("session_id", id),
		zap.Int("total_sessions", len(r.sessions)))

	return s
}

// Get returns the session for id, or ErrSessionNotFound. Lookups never
// create sessions as a side effect.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove deletes the session for id. Removing an absent ID is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return
	}
	delete(r.sessions, id)
	metrics.ActiveSessions.Dec()

	r.log.Info("session removed",
		zap.String("session_id", id),
		zap.Int("total_sessions", len(r.sessions)))
}

// SweepExpired removes every session that is empty of both controllers
// and games and whose age, measured from creation, is at least
// idleThreshold. Age is deliberately counted from CreatedAt rather than
// from when the session last became empty, so a session nobody ever
// joined is swept strictly by age. Returns the number removed.
func (r *Registry) SweepExpired(now time.Time, idleThreshold time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.IsEmpty() && now.Sub(s.CreatedAt()) >= idleThreshold {
			delete(r.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		metrics.SweptSessions.Add(float64(removed))
	}

	return removed
}

// List returns all live sessions in no particular order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// generateSessionID returns 4 random bytes as 8 hex characters.
func generateSessionID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
