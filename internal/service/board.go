package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/storage"
)

// to mock service in tests
type BoardService interface {
	Init(ctx context.Context) error
	List(ctx context.Context) ([]domain.Board, error)
	Get(ctx context.Context, id domain.BoardId) (*domain.Board, error)
	Exists(ctx context.Context, id domain.BoardId) (bool, error)
	Delete(ctx context.Context, id domain.BoardId) error
	UpdateBoards(ctx context.Context) ([]domain.Board, error)
}

// Board is the registry of boards persisted under the boards key.
type Board struct {
	store    storage.Store
	defaults []domain.Board
	mu       sync.Mutex
}

func NewBoard(store storage.Store, defaults []domain.Board) *Board {
	return &Board{store: store, defaults: slices.Clone(defaults)}
}

// Init merges the default boards into the persisted registry. Persisted boards are kept,
// missing defaults are appended and get an empty thread collection.
func (b *Board) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	boards, err := b.load(ctx)
	if err != nil {
		return err
	}

	added := 0
	for _, d := range b.defaults {
		if slices.ContainsFunc(boards, func(x domain.Board) bool { return x.Id == d.Id }) {
			continue
		}
		boards = append(boards, d)
		added++
	}

	if err := storage.SetJSON(ctx, b.store, storage.BoardsKey, boards); err != nil {
		return fmt.Errorf("save boards: %w", err)
	}
	if err := b.ensureCollections(ctx, boards); err != nil {
		return err
	}

	logger.Log.Info("board registry initialized",
		"component", "board",
		"boards", len(boards),
		"added_defaults", added)
	return nil
}

func (b *Board) List(ctx context.Context) ([]domain.Board, error) {
	return b.load(ctx)
}

func (b *Board) Get(ctx context.Context, id domain.BoardId) (*domain.Board, error) {
	boards, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range boards {
		if boards[i].Id == id {
			return &boards[i], nil
		}
	}
	return nil, internal_errors.BoardNotFound()
}

func (b *Board) Exists(ctx context.Context, id domain.BoardId) (bool, error) {
	_, err := b.Get(ctx, id)
	if errors.Is(err, internal_errors.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the board from the registry. The thread collection is handled by the thread service.
func (b *Board) Delete(ctx context.Context, id domain.BoardId) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	boards, err := b.load(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(boards, func(x domain.Board) bool { return x.Id == id })
	if idx < 0 {
		return internal_errors.BoardNotFound()
	}
	boards = slices.Delete(boards, idx, idx+1)
	if err := storage.SetJSON(ctx, b.store, storage.BoardsKey, boards); err != nil {
		return fmt.Errorf("save boards: %w", err)
	}
	return nil
}

// UpdateBoards resets the registry to the default list and creates the collections that are missing.
func (b *Board) UpdateBoards(ctx context.Context) ([]domain.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	boards := slices.Clone(b.defaults)
	if err := storage.SetJSON(ctx, b.store, storage.BoardsKey, boards); err != nil {
		return nil, fmt.Errorf("save boards: %w", err)
	}
	if err := b.ensureCollections(ctx, boards); err != nil {
		return nil, err
	}

	logger.Log.Info("board registry reset to defaults",
		"component", "board",
		"boards", len(boards))
	return boards, nil
}

func (b *Board) load(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	if _, err := storage.GetJSON(ctx, b.store, storage.BoardsKey, &boards); err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	return boards, nil
}

func (b *Board) ensureCollections(ctx context.Context, boards []domain.Board) error {
	for _, board := range boards {
		key := storage.ThreadsKey(board.Id)
		ok, err := storage.Has(ctx, b.store, key)
		if err != nil {
			return fmt.Errorf("check %s: %w", key, err)
		}
		if ok {
			continue
		}
		if err := storage.SetJSON(ctx, b.store, key, []domain.Thread{}); err != nil {
			return fmt.Errorf("create %s: %w", key, err)
		}
	}
	return nil
}
