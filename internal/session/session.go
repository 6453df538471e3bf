// Package session keeps per-visitor state server side. The browser only holds a signed id.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/logger"
)

const CookieName = "schan_session"

type Session struct {
	Id          string
	CaptchaCode string
	Role        domain.Role
	Flash       *domain.Flash
	ExpiresAt   time.Time

	destroyed bool
}

// SetFlash replaces the pending flash message.
func (s *Session) SetFlash(flashType, message string) {
	s.Flash = &domain.Flash{Type: flashType, Message: message}
}

// TakeFlash returns the pending flash message and clears it.
func (s *Session) TakeFlash() *domain.Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Manager stores sessions in memory. Get and Save copy, so request handlers never share a Session;
// the middleware merges each request's changes back field by field.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session

	tokens *Tokens
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secretKey string, ttl time.Duration, secureCookies bool) *Manager {
	return &Manager{
		sessions: make(map[string]Session),
		tokens:   NewTokens(secretKey),
		ttl:      ttl,
		secure:   secureCookies,
		now:      time.Now,
	}
}

func (m *Manager) New() *Session {
	return &Session{Id: uuid.NewString(), ExpiresAt: m.now().Add(m.ttl)}
}

// Get returns a copy of the live session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.expired(m.now()) {
		return nil, false
	}
	return &s, true
}

// Save stores s as a whole. Destroyed sessions are not stored again.
func (m *Manager) Save(s *Session) {
	if s == nil || s.destroyed {
		return
	}

	m.mu.Lock()
	m.sessions[s.Id] = *s
	m.mu.Unlock()
}

// commit writes back the fields a request changed relative to base, the state it loaded.
// A session that is gone by now (logout or expiry from another request) stays gone, and
// fields changed concurrently by other requests are kept.
func (m *Manager) commit(s *Session, base Session) {
	if s.destroyed {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.Id]
	if !ok {
		return
	}
	if s.CaptchaCode != base.CaptchaCode {
		stored.CaptchaCode = s.CaptchaCode
	}
	if s.Role != base.Role {
		stored.Role = s.Role
	}
	if s.Flash != base.Flash {
		stored.Flash = s.Flash
	}
	m.sessions[s.Id] = stored
}

// Destroy removes the session and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, s *Session) {
	if s == nil {
		return
	}
	s.destroyed = true

	m.mu.Lock()
	delete(m.sessions, s.Id)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (m *Manager) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartBackgroundCleanup sweeps expired sessions every interval until ctx is done.
func (m *Manager) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started session cleanup",
		"component", "session",
		"interval", interval,
		"ttl", m.ttl)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := m.Cleanup(); removed > 0 {
					logger.Log.Debug("expired sessions removed",
						"component", "session",
						"removed", removed,
						"remaining", m.Len())
				}
			case <-ctx.Done():
				logger.Log.Info("session cleanup shutting down", "component", "session")
				return
			}
		}
	}()
}

// load resolves the session of r, creating a new one (and its cookie) when needed.
// fresh reports whether the session was created by this request.
func (m *Manager) load(w http.ResponseWriter, r *http.Request) (s *Session, fresh bool, err error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if id, err := m.tokens.Decode(cookie.Value); err == nil {
			if s, ok := m.Get(id); ok {
				return s, false, nil
			}
		}
	}

	s = m.New()
	token, err := m.tokens.Encode(s.Id, s.ExpiresAt)
	if err != nil {
		return nil, false, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, true, nil
}
