package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeMember records every frame delivered to it.
type fakeMember struct {
	id        string
	failSends bool

	mu     sync.Mutex
	frames [][]byte
}

func (m *fakeMember) ID() string { return m.id }

func (m *fakeMember) Send(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return errors.New("send failed")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.frames = append(m.frames, cp)
	return nil
}

func (m *fakeMember) received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}

// statusFrames decodes every session_status frame delivered to m.
func (m *fakeMember) statusFrames(t *testing.T) []statusMessage {
	t.Helper()
	var statuses []statusMessage
	for _, frame := range m.received() {
		var status statusMessage
		if err := json.Unmarshal(frame, &status); err != nil {
			t.Fatalf("Failed to decode frame %q: %v", frame, err)
		}
		if status.Type == "session_status" {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func newTestSession() *Session {
	return newSession("ab12cd34", zap.NewNop())
}

func TestSessionAddClient(t *testing.T) {
	t.Run("controller", func(t *testing.T) {
		s := newTestSession()
		m := &fakeMember{id: "c1"}

		s.AddClient(m, RoleController)

		controllers, games := s.Counts()
		if controllers != 1 || games != 0 {
			t.Errorf("Expected counts (1,0), got (%d,%d)", controllers, games)
		}
	})

	t.Run("game", func(t *testing.T) {
		s := newTestSession()
		m := &fakeMember{id: "g1"}

		s.AddClient(m, RoleGame)

		controllers, games := s.Counts()
		if controllers != 0 || games != 1 {
			t.Errorf("Expected counts (0,1), got (%d,%d)", controllers, games)
		}
	})

	t.Run("unknown role is ignored", func(t *testing.T) {
		s := newTestSession()
		m := &fakeMember{id: "x1"}

		s.AddClient(m, RoleUnknown)

		if !s.IsEmpty() {
			t.Error("Unknown role should not grant membership")
		}
		if len(m.received()) != 0 {
			t.Errorf("Expected no frames for ignored client, got %d", len(m.received()))
		}
	})

	t.Run("member appears in at most one set", func(t *testing.T) {
		s := newTestSession()
		m := &fakeMember{id: "m1"}

		s.AddClient(m, RoleController)
		s.AddClient(m, RoleGame)

		controllers, games := s.Counts()
		if controllers != 0 || games != 1 {
			t.Errorf("Expected member moved to games, got counts (%d,%d)", controllers, games)
		}
	})
}

func TestSessionStatusBroadcast(t *testing.T) {
	s := newTestSession()
	c1 := &fakeMember{id: "c1"}
	g1 := &fakeMember{id: "g1"}

	s.AddClient(c1, RoleController)
	s.AddClient(g1, RoleGame)

	// c1 was present for both membership changes, g1 only for its own.
	c1Statuses := c1.statusFrames(t)
	if len(c1Statuses) != 2 {
		t.Fatalf("Expected 2 status frames for c1, got %d", len(c1Statuses))
	}
	g1Statuses := g1.statusFrames(t)
	if len(g1Statuses) != 1 {
		t.Fatalf("Expected 1 status frame for g1, got %d", len(g1Statuses))
	}

	latest := c1Statuses[len(c1Statuses)-1]
	if latest.SessionID != "ab12cd34" {
		t.Errorf("Expected session ID ab12cd34, got %s", latest.SessionID)
	}
	if latest.Controllers != 1 || latest.Games != 1 {
		t.Errorf("Expected status counts (1,1), got (%d,%d)", latest.Controllers, latest.Games)
	}
	if latest.Timestamp == 0 {
		t.Error("Expected a timestamp in the status frame")
	}
}

func TestSessionBroadcast(t *testing.T) {
	payload := []byte(`{"type":"move","dir":"left"}`)

	containsPayload := func(frames [][]byte) bool {
		for _, frame := range frames {
			if string(frame) == string(payload) {
				return true
			}
		}
		return false
	}

	t.Run("controller frame reaches every game and no controller", func(t *testing.T) {
		s := newTestSession()
		ctrl := &fakeMember{id: "c1"}
		ctrl2 := &fakeMember{id: "c2"}
		g1 := &fakeMember{id: "g1"}
		g2 := &fakeMember{id: "g2"}
		s.AddClient(ctrl, RoleController)
		s.AddClient(ctrl2, RoleController)
		s.AddClient(g1, RoleGame)
		s.AddClient(g2, RoleGame)

		s.Broadcast(payload, ctrl)

		if !containsPayload(g1.received()) || !containsPayload(g2.received()) {
			t.Error("Expected payload delivered to every game member")
		}
		if containsPayload(ctrl.received()) || containsPayload(ctrl2.received()) {
			t.Error("Payload must not be delivered to controllers")
		}
	})

	t.Run("game sender is dropped", func(t *testing.T) {
		s := newTestSession()
		ctrl := &fakeMember{id: "c1"}
		g1 := &fakeMember{id: "g1"}
		g2 := &fakeMember{id: "g2"}
		s.AddClient(ctrl, RoleController)
		s.AddClient(g1, RoleGame)
		s.AddClient(g2, RoleGame)

		s.Broadcast(payload, g1)

		if containsPayload(ctrl.received()) || containsPayload(g1.received()) || containsPayload(g2.received()) {
			t.Error("Frame from a game sender must be delivered to nobody")
		}
	})

	t.Run("stranger sender is dropped", func(t *testing.T) {
		s := newTestSession()
		g1 := &fakeMember{id: "g1"}
		s.AddClient(g1, RoleGame)

		s.Broadcast(payload, &fakeMember{id: "stranger"})

		if containsPayload(g1.received()) {
			t.Error("Frame from a non-member must be delivered to nobody")
		}
	})

	t.Run("send failure does not abort the fan-out", func(t *testing.T) {
		s := newTestSession()
		ctrl := &fakeMember{id: "c1"}
		broken := &fakeMember{id: "g1", failSends: true}
		ok := &fakeMember{id: "g2"}
		s.AddClient(ctrl, RoleController)
		s.AddClient(broken, RoleGame)
		s.AddClient(ok, RoleGame)

		s.Broadcast(payload, ctrl)

		if !containsPayload(ok.received()) {
			t.Error("Healthy game member should still receive the payload")
		}
	})
}

func TestSessionRemoveClient(t *testing.T) {
	t.Run("removes from both sets", func(t *testing.T) {
		s := newTestSession()
		ctrl := &fakeMember{id: "c1"}
		g1 := &fakeMember{id: "g1"}
		s.AddClient(ctrl, RoleController)
		s.AddClient(g1, RoleGame)

		s.RemoveClient(ctrl)

		controllers, games := s.Counts()
		if controllers != 0 || games != 1 {
			t.Errorf("Expected counts (0,1) after removal, got (%d,%d)", controllers, games)
		}

		statuses := g1.statusFrames(t)
		last := statuses[len(statuses)-1]
		if last.Controllers != 0 || last.Games != 1 {
			t.Errorf("Expected final status (0,1), got (%d,%d)", last.Controllers, last.Games)
		}
	})

	t.Run("non-member removal is a no-op", func(t *testing.T) {
		s := newTestSession()
		g1 := &fakeMember{id: "g1"}
		s.AddClient(g1, RoleGame)

		s.RemoveClient(&fakeMember{id: "stranger"})

		_, games := s.Counts()
		if games != 1 {
			t.Errorf("Expected game member untouched, got %d", games)
		}
	})

	t.Run("empty immediately after last removal", func(t *testing.T) {
		s := newTestSession()
		g1 := &fakeMember{id: "g1"}
		s.AddClient(g1, RoleGame)

		s.RemoveClient(g1)

		if !s.IsEmpty() {
			t.Error("Expected IsEmpty() after last member removed")
		}
	})
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		role Role
		ok   bool
	}{
		{"controller", RoleController, true},
		{"game", RoleGame, true},
		{"spectator", RoleUnknown, false},
		{"", RoleUnknown, false},
		{"Controller", RoleUnknown, false},
	}

	for _, tt := range tests {
		role, ok := ParseRole(tt.in)
		if role != tt.role || ok != tt.ok {
			t.Errorf("ParseRole(%q) = (%v,%v), expected (%v,%v)", tt.in, role, ok, tt.role, tt.ok)
		}
	}
}
