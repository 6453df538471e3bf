package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/storage/memory"
)

// MockMediaService records removals and hands out predictable paths.
type MockMediaService struct {
	ingestFunc func(ctx context.Context, file *domain.PendingFile) (*domain.Media, error)

	mu       sync.Mutex
	ingested int
	removed  []string
}

func (m *MockMediaService) Ingest(ctx context.Context, file *domain.PendingFile) (*domain.Media, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, file)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested++
	return &domain.Media{Path: fmt.Sprintf("/uploads/%d-%s", m.ingested, file.Filename), Kind: file.Kind}, nil
}

func (m *MockMediaService) Remove(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, paths...)
}

func (m *MockMediaService) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// MockBanChecker mocks the BanChecker interface.
type MockBanChecker struct {
	isBannedFunc func(ctx context.Context, userId domain.UserId) (bool, error)
}

func (m *MockBanChecker) IsBanned(ctx context.Context, userId domain.UserId) (bool, error) {
	if m.isBannedFunc != nil {
		return m.isBannedFunc(ctx, userId)
	}
	return false, nil
}

// MockThreadService mocks the ThreadService interface.
type MockThreadService struct {
	ThreadService
	deletePostFunc         func(ctx context.Context, postId domain.PostId) error
	deleteBoardThreadsFunc func(ctx context.Context, boardId domain.BoardId) error
}

func (m *MockThreadService) DeletePost(ctx context.Context, postId domain.PostId) error {
	if m.deletePostFunc != nil {
		return m.deletePostFunc(ctx, postId)
	}
	return nil
}

func (m *MockThreadService) DeleteBoardThreads(ctx context.Context, boardId domain.BoardId) error {
	if m.deleteBoardThreadsFunc != nil {
		return m.deleteBoardThreadsFunc(ctx, boardId)
	}
	return nil
}

// MockBoardService mocks the BoardService interface.
type MockBoardService struct {
	BoardService
	deleteFunc       func(ctx context.Context, id domain.BoardId) error
	updateBoardsFunc func(ctx context.Context) ([]domain.Board, error)
}

func (m *MockBoardService) Delete(ctx context.Context, id domain.BoardId) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *MockBoardService) UpdateBoards(ctx context.Context) ([]domain.Board, error) {
	if m.updateBoardsFunc != nil {
		return m.updateBoardsFunc(ctx)
	}
	return nil, nil
}

// MockBanService mocks the BanService interface.
type MockBanService struct {
	banFunc func(ctx context.Context, userId domain.UserId) error
}

func (m *MockBanService) Ban(ctx context.Context, userId domain.UserId) error {
	if m.banFunc != nil {
		return m.banFunc(ctx, userId)
	}
	return nil
}

func (m *MockBanService) IsBanned(ctx context.Context, userId domain.UserId) (bool, error) {
	return false, nil
}

// fakeClock advances one second per call so thread activity is strictly ordered.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type threadFixture struct {
	store   *memory.Storage
	boards  *Board
	media   *MockMediaService
	bans    *MockBanChecker
	threads *Thread
}

func newThreadFixture(boards ...domain.Board) *threadFixture {
	if len(boards) == 0 {
		boards = []domain.Board{{Id: "b", Name: "Random"}, {Id: "g", Name: "Technology"}}
	}
	store := memory.New()
	registry := NewBoard(store, boards)
	if err := registry.Init(context.Background()); err != nil {
		panic(err)
	}

	f := &threadFixture{
		store:  store,
		boards: registry,
		media:  &MockMediaService{},
		bans:   &MockBanChecker{},
	}
	f.threads = NewThread(store, registry, f.bans, f.media)
	f.threads.now = newFakeClock().Now
	return f
}
