package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/storage"
)

type BanService interface {
	Ban(ctx context.Context, userId domain.UserId) error
	IsBanned(ctx context.Context, userId domain.UserId) (bool, error)
}

// Bans stores one banned.<userId> flag per banned poster.
type Bans struct {
	store storage.Store
}

func NewBans(store storage.Store) *Bans {
	return &Bans{store: store}
}

func (b *Bans) Ban(ctx context.Context, userId domain.UserId) error {
	if strings.TrimSpace(userId) == "" {
		return internal_errors.Validation("User id is required")
	}
	if err := storage.SetJSON(ctx, b.store, storage.BannedKey(userId), true); err != nil {
		return fmt.Errorf("ban %s: %w", userId, err)
	}
	return nil
}

func (b *Bans) IsBanned(ctx context.Context, userId domain.UserId) (bool, error) {
	if userId == "" {
		return false, nil
	}
	var banned bool
	if _, err := storage.GetJSON(ctx, b.store, storage.BannedKey(userId), &banned); err != nil {
		return false, fmt.Errorf("check ban %s: %w", userId, err)
	}
	return banned, nil
}
