package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryChecker is a process-local session store, usable as a single-process
// fallback and in unit tests. Multi-instance deployments must use the
// redis-backed LoginChecker so all instances see the same sessions.
type MemoryChecker struct {
	ttl      time.Duration
	mutex    sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID    int
	expiresAt time.Time
}

func NewMemoryChecker(ttl time.Duration) *MemoryChecker {
	return &MemoryChecker{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
	}
}

func (c *MemoryChecker) UserID(_ context.Context, token string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s, ok := c.sessions[token]
	if !ok {
		return 0, ErrNotLoggedIn
	}
	if time.Now().After(s.expiresAt) {
		delete(c.sessions, token)
		return 0, ErrNotLoggedIn
	}

	// sliding expiry, same as the redis variant
	s.expiresAt = time.Now().Add(c.ttl)
	c.sessions[token] = s

	return s.userID, nil
}

func (c *MemoryChecker) SetSession(token string, userID int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessions[token] = memorySession{
		userID:    userID,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// SetSessionExpiresAt sets a session with an explicit deadline (for testing
// expiry behavior).
func (c *MemoryChecker) SetSessionExpiresAt(token string, userID int, expiresAt time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessions[token] = memorySession{
		userID:    userID,
		expiresAt: expiresAt,
	}
}

func (c *MemoryChecker) RemoveSession(token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.sessions, token)
}
