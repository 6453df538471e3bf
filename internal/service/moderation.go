package service

import (
	"context"
	"fmt"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

type ModerationService interface {
	Login(required domain.Role, password string) (domain.Role, error)
	RequireRole(current, required domain.Role) error
	DeletePost(ctx context.Context, postId domain.PostId, actor domain.Role) error
	DeleteBoard(ctx context.Context, boardId domain.BoardId) error
	BanUser(ctx context.Context, userId domain.UserId) error
	UpdateBoards(ctx context.Context) ([]domain.Board, error)
}

// Moderation guards the admin and mod operations behind two shared secrets.
// A role whose secret is not configured can never be obtained.
type Moderation struct {
	adminHash []byte
	modHash   []byte

	boards  BoardService
	threads ThreadService
	bans    BanService
}

// NewModeration hashes the configured secrets. Empty secrets leave the role disabled.
func NewModeration(adminPassword, modPassword string, cost int, boards BoardService, threads ThreadService, bans BanService) (*Moderation, error) {
	m := &Moderation{boards: boards, threads: threads, bans: bans}

	var err error
	if m.adminHash, err = hashSecret(adminPassword, cost); err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	if m.modHash, err = hashSecret(modPassword, cost); err != nil {
		return nil, fmt.Errorf("mod password: %w", err)
	}

	if m.adminHash == nil {
		logger.Log.Warn("admin password not configured, admin routes are disabled", "component", "moderation")
	}
	if m.modHash == nil {
		logger.Log.Warn("mod password not configured, mod routes are disabled", "component", "moderation")
	}
	return m, nil
}

func hashSecret(secret string, cost int) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(secret), cost)
}

func (m *Moderation) hashFor(role domain.Role) []byte {
	switch role {
	case domain.RoleAdmin:
		return m.adminHash
	case domain.RoleMod:
		return m.modHash
	default:
		return nil
	}
}

// Login checks password against the secret of the required role and returns the granted role.
func (m *Moderation) Login(required domain.Role, password string) (domain.Role, error) {
	hash := m.hashFor(required)
	if hash == nil {
		logger.Log.Error("password not configured", "component", "moderation", "role", required.String())
		return domain.RoleNone, internal_errors.Config("Server configuration error")
	}
	if password == "" {
		return domain.RoleNone, internal_errors.Validation("Password is required")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		logger.Log.Warn("login failed", "component", "moderation", "role", required.String())
		return domain.RoleNone, internal_errors.Unauthorized("Invalid credentials")
	}

	logger.Log.Info("login succeeded", "component", "moderation", "role", required.String())
	return required, nil
}

// RequireRole fails closed with a configuration error when the required role has no secret.
func (m *Moderation) RequireRole(current, required domain.Role) error {
	if required == domain.RoleNone {
		return nil
	}
	if m.hashFor(required) == nil {
		logger.Log.Error("password not configured", "component", "moderation", "role", required.String())
		return internal_errors.Config("Server configuration error")
	}
	if !current.Satisfies(required) {
		if required == domain.RoleAdmin {
			return internal_errors.Forbidden("Admin access required")
		}
		return internal_errors.Forbidden("Moderator access required")
	}
	return nil
}

func (m *Moderation) DeletePost(ctx context.Context, postId domain.PostId, actor domain.Role) error {
	if err := m.threads.DeletePost(ctx, postId); err != nil {
		return err
	}
	metrics.ModerationActions.WithLabelValues("delete_post", actor.String()).Inc()
	logger.Log.Info("post deleted", "component", "moderation", "post_id", postId, "role", actor.String())
	return nil
}

// DeleteBoard removes the registry entry, the thread collection and its media.
func (m *Moderation) DeleteBoard(ctx context.Context, boardId domain.BoardId) error {
	if err := m.boards.Delete(ctx, boardId); err != nil {
		return err
	}
	if err := m.threads.DeleteBoardThreads(ctx, boardId); err != nil {
		return err
	}
	metrics.ModerationActions.WithLabelValues("delete_board", domain.RoleAdmin.String()).Inc()
	logger.Log.Info("board deleted", "component", "moderation", "board", boardId)
	return nil
}

func (m *Moderation) BanUser(ctx context.Context, userId domain.UserId) error {
	if err := m.bans.Ban(ctx, userId); err != nil {
		return err
	}
	metrics.ModerationActions.WithLabelValues("ban_user", domain.RoleMod.String()).Inc()
	logger.Log.Info("user banned", "component", "moderation", "user_id", userId)
	return nil
}

func (m *Moderation) UpdateBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := m.boards.UpdateBoards(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ModerationActions.WithLabelValues("update_boards", domain.RoleAdmin.String()).Inc()
	return boards, nil
}
