package handler

import (
	"context"
	"net/http"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/service"
	"github.com/itchan-dev/schan/internal/session"
)

// MockBoardService mocks the service.BoardService interface.
type MockBoardService struct {
	service.BoardService
	boards []domain.Board
	err    error
}

func (m *MockBoardService) List(ctx context.Context) ([]domain.Board, error) {
	return m.boards, m.err
}

func (m *MockBoardService) Get(ctx context.Context, id domain.BoardId) (*domain.Board, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.boards {
		if m.boards[i].Id == id {
			return &m.boards[i], nil
		}
	}
	return nil, internal_errors.BoardNotFound()
}

func (m *MockBoardService) Exists(ctx context.Context, id domain.BoardId) (bool, error) {
	b, err := m.Get(ctx, id)
	if err != nil && m.err != nil {
		return false, err
	}
	return b != nil, nil
}

// MockThreadService mocks the service.ThreadService interface.
type MockThreadService struct {
	service.ThreadService
	createThreadFunc func(ctx context.Context, boardId domain.BoardId, data domain.ThreadCreationData) (*domain.Thread, error)
	appendReplyFunc  func(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId, data domain.PostCreationData) (*domain.Post, error)
	listThreadsFunc  func(ctx context.Context, boardId domain.BoardId) ([]domain.Thread, error)
	getThreadFunc    func(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId) (*domain.Thread, error)
}

func (m *MockThreadService) CreateThread(ctx context.Context, boardId domain.BoardId, data domain.ThreadCreationData) (*domain.Thread, error) {
	if m.createThreadFunc != nil {
		return m.createThreadFunc(ctx, boardId, data)
	}
	return &domain.Thread{Id: 1}, nil
}

func (m *MockThreadService) AppendReply(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId, data domain.PostCreationData) (*domain.Post, error) {
	if m.appendReplyFunc != nil {
		return m.appendReplyFunc(ctx, boardId, threadId, data)
	}
	return &domain.Post{Id: 2}, nil
}

func (m *MockThreadService) ListThreads(ctx context.Context, boardId domain.BoardId) ([]domain.Thread, error) {
	if m.listThreadsFunc != nil {
		return m.listThreadsFunc(ctx, boardId)
	}
	return nil, nil
}

func (m *MockThreadService) GetThread(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId) (*domain.Thread, error) {
	if m.getThreadFunc != nil {
		return m.getThreadFunc(ctx, boardId, threadId)
	}
	return nil, internal_errors.NotFound("Thread not found")
}

// MockCaptchaService mocks the service.CaptchaService interface.
type MockCaptchaService struct {
	code   string
	result service.CaptchaResult
	names  []string
}

func (m *MockCaptchaService) Generate() (string, error) {
	return m.code, nil
}

func (m *MockCaptchaService) Verify(sessionCode, submittedCode, submittedName string) service.CaptchaResult {
	return m.result
}

func (m *MockCaptchaService) EncodedSpecialNames() []string {
	return m.names
}

// MockModerationService mocks the service.ModerationService interface.
type MockModerationService struct {
	service.ModerationService
	loginFunc      func(required domain.Role, password string) (domain.Role, error)
	deletePostFunc func(ctx context.Context, postId domain.PostId, actor domain.Role) error
	banUserFunc    func(ctx context.Context, userId domain.UserId) error
}

func (m *MockModerationService) Login(required domain.Role, password string) (domain.Role, error) {
	if m.loginFunc != nil {
		return m.loginFunc(required, password)
	}
	return required, nil
}

func (m *MockModerationService) DeletePost(ctx context.Context, postId domain.PostId, actor domain.Role) error {
	if m.deletePostFunc != nil {
		return m.deletePostFunc(ctx, postId, actor)
	}
	return nil
}

func (m *MockModerationService) BanUser(ctx context.Context, userId domain.UserId) error {
	if m.banUserFunc != nil {
		return m.banUserFunc(ctx, userId)
	}
	return nil
}

// MockSessions mocks the SessionDestroyer interface.
type MockSessions struct {
	destroyed []*session.Session
}

func (m *MockSessions) Destroy(w http.ResponseWriter, s *session.Session) {
	m.destroyed = append(m.destroyed, s)
}

// MockPinger mocks the Pinger interface.
type MockPinger struct {
	err error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.err
}
