package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestModeration(t *testing.T, admin, mod string) *Moderation {
	t.Helper()
	m, err := NewModeration(admin, mod, bcrypt.MinCost, &MockBoardService{}, &MockThreadService{}, &MockBanService{})
	require.NoError(t, err)
	return m
}

func TestModerationLogin(t *testing.T) {
	m := newTestModeration(t, "admin-secret", "mod-secret")

	tests := []struct {
		name       string
		role       domain.Role
		password   string
		wantRole   domain.Role
		wantStatus int
	}{
		{"admin ok", domain.RoleAdmin, "admin-secret", domain.RoleAdmin, 0},
		{"mod ok", domain.RoleMod, "mod-secret", domain.RoleMod, 0},
		{"empty password", domain.RoleAdmin, "", domain.RoleNone, http.StatusBadRequest},
		{"wrong password", domain.RoleMod, "admin-secret", domain.RoleNone, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := m.Login(tt.role, tt.password)
			assert.Equal(t, tt.wantRole, role)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantStatus, internal_errors.StatusCode(err))
		})
	}

	t.Run("secrets are not kept in clear", func(t *testing.T) {
		assert.NotEqual(t, "admin-secret", string(m.adminHash))
	})
}

func TestModerationLoginWithoutSecret(t *testing.T) {
	m := newTestModeration(t, "", "")

	_, err := m.Login(domain.RoleAdmin, "anything")
	assert.ErrorIs(t, err, internal_errors.ErrConfig)
	assert.Equal(t, http.StatusInternalServerError, internal_errors.StatusCode(err))

	// missing secret wins over an empty password
	_, err = m.Login(domain.RoleMod, "")
	assert.ErrorIs(t, err, internal_errors.ErrConfig)
}

func TestModerationRequireRole(t *testing.T) {
	configured := newTestModeration(t, "a", "m")
	unconfigured := newTestModeration(t, "", "m")

	tests := []struct {
		name     string
		m        *Moderation
		current  domain.Role
		required domain.Role
		wantErr  error
	}{
		{"admin on admin route", configured, domain.RoleAdmin, domain.RoleAdmin, nil},
		{"admin on mod route", configured, domain.RoleAdmin, domain.RoleMod, nil},
		{"mod on mod route", configured, domain.RoleMod, domain.RoleMod, nil},
		{"mod on admin route", configured, domain.RoleMod, domain.RoleAdmin, internal_errors.ErrForbidden},
		{"anonymous on mod route", configured, domain.RoleNone, domain.RoleMod, internal_errors.ErrForbidden},
		{"no admin secret fails closed", unconfigured, domain.RoleAdmin, domain.RoleAdmin, internal_errors.ErrConfig},
		{"no admin secret anonymous", unconfigured, domain.RoleNone, domain.RoleAdmin, internal_errors.ErrConfig},
		{"public route", unconfigured, domain.RoleNone, domain.RoleNone, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.RequireRole(tt.current, tt.required)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestModerationActions(t *testing.T) {
	ctx := context.Background()

	t.Run("delete board removes registry entry then threads", func(t *testing.T) {
		var calls []string
		boards := &MockBoardService{deleteFunc: func(ctx context.Context, id domain.BoardId) error {
			calls = append(calls, "registry:"+id)
			return nil
		}}
		threads := &MockThreadService{deleteBoardThreadsFunc: func(ctx context.Context, id domain.BoardId) error {
			calls = append(calls, "threads:"+id)
			return nil
		}}
		m, err := NewModeration("a", "m", bcrypt.MinCost, boards, threads, &MockBanService{})
		require.NoError(t, err)

		require.NoError(t, m.DeleteBoard(ctx, "b"))
		assert.Equal(t, []string{"registry:b", "threads:b"}, calls)
	})

	t.Run("delete unknown board keeps threads", func(t *testing.T) {
		boards := &MockBoardService{deleteFunc: func(ctx context.Context, id domain.BoardId) error {
			return internal_errors.NotFound("Board not found")
		}}
		threads := &MockThreadService{deleteBoardThreadsFunc: func(ctx context.Context, id domain.BoardId) error {
			t.Fatal("threads must not be deleted")
			return nil
		}}
		m, err := NewModeration("a", "m", bcrypt.MinCost, boards, threads, &MockBanService{})
		require.NoError(t, err)

		assert.ErrorIs(t, m.DeleteBoard(ctx, "zz"), internal_errors.ErrNotFound)
	})

	t.Run("delete post and ban pass through", func(t *testing.T) {
		var deleted domain.PostId
		var banned domain.UserId
		threads := &MockThreadService{deletePostFunc: func(ctx context.Context, id domain.PostId) error {
			deleted = id
			return nil
		}}
		bans := &MockBanService{banFunc: func(ctx context.Context, id domain.UserId) error {
			banned = id
			return nil
		}}
		m, err := NewModeration("a", "m", bcrypt.MinCost, &MockBoardService{}, threads, bans)
		require.NoError(t, err)

		require.NoError(t, m.DeletePost(ctx, 42, domain.RoleMod))
		require.NoError(t, m.BanUser(ctx, "user"))
		assert.Equal(t, domain.PostId(42), deleted)
		assert.Equal(t, domain.UserId("user"), banned)
	})

	t.Run("update boards error", func(t *testing.T) {
		boards := &MockBoardService{updateBoardsFunc: func(ctx context.Context) ([]domain.Board, error) {
			return nil, errors.New("storage down")
		}}
		m, err := NewModeration("a", "m", bcrypt.MinCost, boards, &MockThreadService{}, &MockBanService{})
		require.NoError(t, err)

		_, err = m.UpdateBoards(ctx)
		assert.Error(t, err)
	})
}

func TestNewModerationRejectsLongSecret(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewModeration(string(long), "", bcrypt.MinCost, &MockBoardService{}, &MockThreadService{}, &MockBanService{})
	assert.Error(t, err)
}
