package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret")
	id := "9b2f8a3e-6c1d-4f5a-8e7b-0a1b2c3d4e5f"

	t.Run("round trip", func(t *testing.T) {
		tok, err := tokens.Encode(id, time.Now().Add(time.Hour))
		require.NoError(t, err)

		got, err := tokens.Decode(tok)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := tokens.Encode(id, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		_, err = tokens.Decode(tok)
		assert.ErrorIs(t, err, internal_errors.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewTokens("other").Encode(id, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = tokens.Decode(tok)
		assert.Error(t, err)
	})

	t.Run("id must be a uuid", func(t *testing.T) {
		tok, err := tokens.Encode("not-a-uuid", time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = tokens.Decode(tok)
		assert.Error(t, err)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		claims := jwt.RegisteredClaims{ID: id, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Decode(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Decode("a.b.c")
		assert.Error(t, err)
	})
}

func serve(m *Manager, h http.HandlerFunc, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	m.Middleware(h).ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func TestMiddleware(t *testing.T) {
	t.Run("new visitor gets a cookie and state persists", func(t *testing.T) {
		m := NewManager("secret", time.Hour, false)

		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			require.NotNil(t, s)
			s.CaptchaCode = "ABC234"
			s.SetFlash(domain.FlashError, "Invalid captcha")
		})
		cookie := sessionCookie(t, rec)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, 1, m.Len())

		serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			assert.Equal(t, "ABC234", s.CaptchaCode)
			flash := s.TakeFlash()
			require.NotNil(t, flash)
			assert.Equal(t, "Invalid captcha", flash.Message)
		}, cookie)

		serve(m, func(w http.ResponseWriter, r *http.Request) {
			assert.Nil(t, FromContext(r.Context()).TakeFlash(), "flash is consumed once")
		}, cookie)
	})

	t.Run("forged cookie gets a fresh session", func(t *testing.T) {
		m := NewManager("secret", time.Hour, true)
		var id string
		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			id = FromContext(r.Context()).Id
		}, &http.Cookie{Name: CookieName, Value: "forged"})

		cookie := sessionCookie(t, rec)
		assert.True(t, cookie.Secure)
		assert.NotEmpty(t, id)
	})

	t.Run("destroy removes session and expires cookie", func(t *testing.T) {
		m := NewManager("secret", time.Hour, false)
		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Role = domain.RoleAdmin
		})
		cookie := sessionCookie(t, rec)

		rec = serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			assert.Equal(t, domain.RoleAdmin, s.Role)
			m.Destroy(w, s)
		}, cookie)
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

		serve(m, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, domain.RoleNone, FromContext(r.Context()).Role)
		}, cookie)
	})
}

func TestConcurrentRequests(t *testing.T) {
	// login returns the cookie of a session already promoted to role.
	login := func(t *testing.T, m *Manager, role domain.Role) *http.Cookie {
		rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Role = role
		})
		return sessionCookie(t, rec)
	}

	// inFlight starts a request that stalls inside its handler until release is closed.
	inFlight := func(m *Manager, cookie *http.Cookie, h http.HandlerFunc) (entered, release, done chan struct{}) {
		entered, release, done = make(chan struct{}), make(chan struct{}), make(chan struct{})
		go func() {
			defer close(done)
			serve(m, func(w http.ResponseWriter, r *http.Request) {
				close(entered)
				<-release
				h(w, r)
			}, cookie)
		}()
		return entered, release, done
	}

	t.Run("logout is not undone by a slower request", func(t *testing.T) {
		// Arrange
		m := NewManager("secret", time.Hour, false)
		cookie := login(t, m, domain.RoleAdmin)
		entered, release, done := inFlight(m, cookie, func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).CaptchaCode = "XYZ789"
		})
		<-entered

		// Act
		serve(m, func(w http.ResponseWriter, r *http.Request) {
			m.Destroy(w, FromContext(r.Context()))
		}, cookie)
		close(release)
		<-done

		// Assert
		assert.Equal(t, 0, m.Len())
		serve(m, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, domain.RoleNone, FromContext(r.Context()).Role)
		}, cookie)
	})

	t.Run("untouched fields are not overwritten", func(t *testing.T) {
		m := NewManager("secret", time.Hour, false)
		cookie := login(t, m, domain.RoleNone)
		entered, release, done := inFlight(m, cookie, func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).CaptchaCode = "XYZ789"
		})
		<-entered

		serve(m, func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Role = domain.RoleMod
		}, cookie)
		close(release)
		<-done

		serve(m, func(w http.ResponseWriter, r *http.Request) {
			s := FromContext(r.Context())
			assert.Equal(t, domain.RoleMod, s.Role)
			assert.Equal(t, "XYZ789", s.CaptchaCode)
		}, cookie)
	})
}

func TestFromContextWithoutSession(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestCleanup(t *testing.T) {
	m := NewManager("secret", time.Minute, false)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Save(m.New())
	m.Save(m.New())
	require.Equal(t, 2, m.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, m.Cleanup())
	assert.Equal(t, 0, m.Len())
}

func TestGetExpired(t *testing.T) {
	m := NewManager("secret", time.Minute, false)
	now := time.Now()
	m.now = func() time.Time { return now }

	s := m.New()
	m.Save(s)
	_, ok := m.Get(s.Id)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = m.Get(s.Id)
	assert.False(t, ok)
}

func TestStartBackgroundCleanup(t *testing.T) {
	m := NewManager("secret", time.Millisecond, false)
	m.Save(m.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartBackgroundCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
}
