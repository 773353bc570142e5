package session

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/padlink/padlink/metrics"
)

// Member is a connection handle a session can deliver frames to.
// Implementations must make Send safe for concurrent use and
// non-blocking; a slow peer is reported via the error return, not by
// stalling the caller.
type Member interface {
	// ID identifies the connection in logs.
	ID() string
	// Send queues a single text frame for delivery.
	Send(payload []byte) error
}

// statusMessage is pushed to every member after a membership change.
type statusMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Games       int    `json:"games"`
	Controllers int    `json:"controllers"`
	Timestamp   int64  `json:"timestamp"`
}

// Session groups the connections of one game instance and routes
// controller input to game clients. Sessions are created by a Registry
// and reachable only through it.
type Session struct {
	id        string
	createdAt time.Time
	log       *zap.Logger

	mu          sync.Mutex
	controllers map[Member]struct{}
	games       map[Member]struct{}
}

func newSession(id string, log *zap.Logger) *Session {
	return &Session{
		id:          id,
		createdAt:   time.Now(),
		log:         log,
		controllers: make(map[Member]struct{}),
		games:       make(map[Member]struct{}),
	}
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the construction timestamp used by the sweeper.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// AddClient inserts m into the membership set for role and notifies
// every member of the new counts. An unknown role changes nothing.
// A member already present is moved, never duplicated, so a handle
// appears in at most one set.
func (s *Session) AddClient(m Member, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch role {
	case RoleController:
		delete(s.games, m)
		s.controllers[m] = struct{}{}
	case RoleGame:
		delete(s.controllers, m)
		s.games[m] = struct{}{}
	default:
		s.log.Warn("ignoring client with unknown role",
			zap.String("session_id", s.id),
			zap.String("client_id", m.ID()))
		return
	}

	s.broadcastStatusLocked()
}

// RemoveClient removes m from both sets and notifies the remaining
// members. Removing a non-member is a no-op apart from the notice.
func (s *Session) RemoveClient(m Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.controllers, m)
	delete(s.games, m)

	s.broadcastStatusLocked()
}

// Broadcast relays payload verbatim to every game member, but only
// when sender is currently a controller of this session. Frames from
// game members or from strangers are dropped silently.
func (s *Session) Broadcast(payload []byte, sender Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controllers[sender]; !ok {
		s.log.Debug("dropping frame from non-controller",
			zap.String("session_id", s.id),
			zap.String("client_id", sender.ID()))
		return
	}

	metrics.RelayedMessages.Inc()

	for m := range s.games {
		if err := m.Send(payload); err != nil {
			// Leave the peer for its close handler to reap.
			s.log.Warn("relay send failed",
				zap.String("session_id", s.id),
				zap.String("client_id", m.ID()),
				zap.Error(err))
		}
	}
}

// BroadcastStatus pushes the current membership counts to every member
// of both sets.
func (s *Session) BroadcastStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastStatusLocked()
}

func (s *Session) broadcastStatusLocked() {
	status := statusMessage{
		Type:        "session_status",
		SessionID:   s.id,
		Games:       len(s.games),
		Controllers: len(s.controllers),
		Timestamp:   time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(status)
	if err != nil {
		s.log.Error("failed to marshal session status", zap.Error(err))
		return
	}

	for _, set := range []map[Member]struct{}{s.controllers, s.games} {
		for m := range set {
			if err := m.Send(payload); err != nil {
				s.log.Warn("status send failed",
					zap.String("session_id", s.id),
					zap.String("client_id", m.ID()),
					zap.Error(err))
			}
		}
	}
}

// Counts returns the current number of controller and game members.
func (s *Session) Counts() (controllers, games int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers), len(s.games)
}

// IsEmpty reports whether both membership sets are empty.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers) == 0 && len(s.games) == 0
}
