package echo

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one accepted websocket client.
type Session struct {
	ID        uuid.UUID
	User      string // empty for anonymous clients
	RemoteIP  string
	StartedAt time.Time
}

// Authenticated reports whether the session carries a verified user.
func (s *Session) Authenticated() bool {
	return s.User != ""
}

// Clients tracks the sessions currently connected to a Handler.
type Clients struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// ClientStats counts connected sessions.
type ClientStats struct {
	Total int
	Auth  int
	Anon  int
}

func (s ClientStats) String() string {
	return fmt.Sprintf("%d auth, %d anon, %d total", s.Auth, s.Anon, s.Total)
}

func newClients() *Clients {
	return &Clients{sessions: make(map[uuid.UUID]*Session)}
}

func (c *Clients) add(user, remoteIP string) *Session {
	s := &Session{
		ID:        uuid.New(),
		User:      user,
		RemoteIP:  remoteIP,
		StartedAt: time.Now(),
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.mu.Unlock()
	return s
}

func (c *Clients) remove(s *Session) {
	c.mu.Lock()
	delete(c.sessions, s.ID)
	c.mu.Unlock()
}

// Stats returns the current session counts.
func (c *Clients) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stats ClientStats
	for _, s := range c.sessions {
		stats.Total++
		if s.Authenticated() {
			stats.Auth++
		} else {
			stats.Anon++
		}
	}
	return stats
}

// Snapshot returns a copy of every connected session.
func (c *Clients) Snapshot() []Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, *s)
	}
	return out
}
