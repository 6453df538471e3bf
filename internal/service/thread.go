package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/metrics"
	"github.com/itchan-dev/schan/internal/storage"
)

type ThreadService interface {
	CreateThread(ctx context.Context, boardId domain.BoardId, data domain.ThreadCreationData) (*domain.Thread, error)
	AppendReply(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId, data domain.PostCreationData) (*domain.Post, error)
	ListThreads(ctx context.Context, boardId domain.BoardId) ([]domain.Thread, error)
	GetThread(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId) (*domain.Thread, error)
	DeletePost(ctx context.Context, postId domain.PostId) error
	DeleteBoardThreads(ctx context.Context, boardId domain.BoardId) error
}

// BoardLookup is the part of the board registry the thread store needs.
type BoardLookup interface {
	List(ctx context.Context) ([]domain.Board, error)
	Exists(ctx context.Context, id domain.BoardId) (bool, error)
}

type BanChecker interface {
	IsBanned(ctx context.Context, userId domain.UserId) (bool, error)
}

// Thread keeps every board's threads in one threads_<board> collection.
// Mutations of a collection are serialized by a per-board lock.
type Thread struct {
	store  storage.Store
	boards BoardLookup
	bans   BanChecker
	media  MediaService

	maxThreads int
	maxPosts   int
	now        func() time.Time

	locks keyedMutex
	seqMu sync.Mutex
}

func NewThread(store storage.Store, boards BoardLookup, bans BanChecker, media MediaService) *Thread {
	return &Thread{
		store:      store,
		boards:     boards,
		bans:       bans,
		media:      media,
		maxThreads: domain.MaxThreadsPerBoard,
		maxPosts:   domain.MaxPostsPerThread,
		now:        time.Now,
	}
}

// CreateThread stores a new thread with its opening post and evicts the least recently
// active threads above the per-board cap.
func (s *Thread) CreateThread(ctx context.Context, boardId domain.BoardId, data domain.ThreadCreationData) (*domain.Thread, error) {
	if err := s.checkBoard(ctx, boardId); err != nil {
		return nil, err
	}
	if err := s.checkPost(ctx, &data.OpPost); err != nil {
		return nil, err
	}

	post, err := s.buildPost(ctx, &data.OpPost)
	if err != nil {
		return nil, err
	}
	threadId, err := s.nextId(ctx)
	if err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}

	s.locks.Lock(boardId)
	defer s.locks.Unlock(boardId)

	threads, err := s.load(ctx, boardId)
	if err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}

	thread := domain.Thread{
		Id:           threadId,
		Subject:      cmp.Or(strings.TrimSpace(data.Subject), domain.DefaultSubject),
		OpPostId:     post.Id,
		Posts:        []domain.Post{*post},
		PostCount:    1,
		LastPostTime: post.Timestamp,
	}
	threads = append(threads, thread)

	var evicted []domain.Thread
	threads, evicted = capThreads(threads, s.maxThreads)

	if err := s.save(ctx, boardId, threads); err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}

	for _, t := range evicted {
		for _, p := range t.Posts {
			s.media.Remove(p.MediaPaths()...)
		}
	}

	metrics.ThreadsCreated.WithLabelValues(boardId).Inc()
	metrics.PostsCreated.WithLabelValues(boardId).Inc()
	if len(evicted) > 0 {
		metrics.ThreadsEvicted.WithLabelValues(boardId).Add(float64(len(evicted)))
		logger.Log.Info("evicted threads over board cap",
			"component", "thread",
			"board", boardId,
			"evicted", len(evicted))
	}
	logger.Log.Debug("thread created", "component", "thread", "board", boardId, "thread_id", thread.Id)

	return &thread, nil
}

// AppendReply adds a post to an existing thread and trims the oldest posts above the cap.
func (s *Thread) AppendReply(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId, data domain.PostCreationData) (*domain.Post, error) {
	if err := s.checkBoard(ctx, boardId); err != nil {
		return nil, err
	}
	if _, err := s.GetThread(ctx, boardId, threadId); err != nil {
		return nil, err
	}
	if err := s.checkPost(ctx, &data); err != nil {
		return nil, err
	}

	post, err := s.buildPost(ctx, &data)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(boardId)
	defer s.locks.Unlock(boardId)

	threads, err := s.load(ctx, boardId)
	if err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}

	idx := slices.IndexFunc(threads, func(t domain.Thread) bool { return t.Id == threadId })
	if idx < 0 {
		// deleted while the upload was processed
		s.media.Remove(post.MediaPaths()...)
		return nil, internal_errors.NotFound("Thread not found")
	}

	thread := &threads[idx]
	thread.Posts = append(thread.Posts, *post)
	thread.PostCount++
	thread.LastPostTime = post.Timestamp

	var trimmed []domain.Post
	thread.Posts, trimmed = capPosts(thread.Posts, s.maxPosts)

	if err := s.save(ctx, boardId, threads); err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}

	for _, p := range trimmed {
		s.media.Remove(p.MediaPaths()...)
	}

	metrics.PostsCreated.WithLabelValues(boardId).Inc()
	if len(trimmed) > 0 {
		metrics.PostsTrimmed.WithLabelValues(boardId).Add(float64(len(trimmed)))
	}
	logger.Log.Debug("reply created", "component", "thread", "board", boardId, "thread_id", threadId, "post_id", post.Id)

	return post, nil
}

// ListThreads returns the board's threads, most recently active first.
func (s *Thread) ListThreads(ctx context.Context, boardId domain.BoardId) ([]domain.Thread, error) {
	if err := s.checkBoard(ctx, boardId); err != nil {
		return nil, err
	}
	threads, err := s.load(ctx, boardId)
	if err != nil {
		return nil, err
	}
	sortByActivity(threads)
	return threads, nil
}

func (s *Thread) GetThread(ctx context.Context, boardId domain.BoardId, threadId domain.ThreadId) (*domain.Thread, error) {
	threads, err := s.load(ctx, boardId)
	if err != nil {
		return nil, err
	}
	for i := range threads {
		if threads[i].Id == threadId {
			return &threads[i], nil
		}
	}
	return nil, internal_errors.NotFound("Thread not found")
}

// DeletePost searches every board for the post. Deleting an opening post removes its thread;
// any other post, including the oldest one left after trimming, is removed alone.
func (s *Thread) DeletePost(ctx context.Context, postId domain.PostId) error {
	boards, err := s.boards.List(ctx)
	if err != nil {
		return err
	}

	for _, board := range boards {
		removed, found, err := s.deletePostInBoard(ctx, board.Id, postId)
		if err != nil {
			return err
		}
		if found {
			s.media.Remove(removed...)
			return nil
		}
	}
	return internal_errors.NotFound("Post not found")
}

func (s *Thread) deletePostInBoard(ctx context.Context, boardId domain.BoardId, postId domain.PostId) ([]string, bool, error) {
	s.locks.Lock(boardId)
	defer s.locks.Unlock(boardId)

	threads, err := s.load(ctx, boardId)
	if err != nil {
		return nil, false, err
	}

	for ti := range threads {
		pi := slices.IndexFunc(threads[ti].Posts, func(p domain.Post) bool { return p.Id == postId })
		if pi < 0 {
			continue
		}

		var removed []string
		if threads[ti].IsOP(postId) {
			for _, p := range threads[ti].Posts {
				removed = append(removed, p.MediaPaths()...)
			}
			threads = slices.Delete(threads, ti, ti+1)
		} else {
			removed = threads[ti].Posts[pi].MediaPaths()
			threads[ti].Posts = slices.Delete(threads[ti].Posts, pi, pi+1)
		}

		if err := s.save(ctx, boardId, threads); err != nil {
			return nil, false, err
		}
		return removed, true, nil
	}
	return nil, false, nil
}

// DeleteBoardThreads drops the board's collection and every file its posts reference.
func (s *Thread) DeleteBoardThreads(ctx context.Context, boardId domain.BoardId) error {
	s.locks.Lock(boardId)
	defer s.locks.Unlock(boardId)

	threads, err := s.load(ctx, boardId)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.ThreadsKey(boardId)); err != nil {
		return fmt.Errorf("delete threads of %s: %w", boardId, err)
	}
	for _, t := range threads {
		for _, p := range t.Posts {
			s.media.Remove(p.MediaPaths()...)
		}
	}
	return nil
}

// ReferencedMedia lists the public paths of every file a stored post points at.
func (s *Thread) ReferencedMedia(ctx context.Context) ([]string, error) {
	boards, err := s.boards.List(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, b := range boards {
		s.locks.Lock(b.Id)
		threads, err := s.load(ctx, b.Id)
		s.locks.Unlock(b.Id)
		if err != nil {
			return nil, err
		}
		for _, t := range threads {
			for _, p := range t.Posts {
				paths = append(paths, p.MediaPaths()...)
			}
		}
	}
	return paths, nil
}

func (s *Thread) checkBoard(ctx context.Context, boardId domain.BoardId) error {
	ok, err := s.boards.Exists(ctx, boardId)
	if err != nil {
		return err
	}
	if !ok {
		return internal_errors.BoardNotFound()
	}
	return nil
}

func (s *Thread) checkPost(ctx context.Context, data *domain.PostCreationData) error {
	if !data.HasPayload() {
		return internal_errors.Validation("Post must contain an image, video, or text")
	}
	banned, err := s.bans.IsBanned(ctx, data.AuthorId)
	if err != nil {
		return err
	}
	if banned {
		return internal_errors.Banned("You are banned from posting")
	}
	return nil
}

// buildPost stores the attachments and allocates the id. Files are removed again on failure.
func (s *Thread) buildPost(ctx context.Context, data *domain.PostCreationData) (*domain.Post, error) {
	post := &domain.Post{
		Name:      cmp.Or(strings.TrimSpace(data.Name), domain.DefaultAuthorName),
		Content:   data.Content,
		Timestamp: s.now().UTC(),
		AuthorId:  data.AuthorId,
	}

	if data.Image != nil {
		m, err := s.media.Ingest(ctx, data.Image)
		if err != nil {
			return nil, err
		}
		post.Image = m.Path
	}
	if data.Video != nil {
		m, err := s.media.Ingest(ctx, data.Video)
		if err != nil {
			s.media.Remove(post.MediaPaths()...)
			return nil, err
		}
		post.Video = m.Path
	}

	id, err := s.nextId(ctx)
	if err != nil {
		s.media.Remove(post.MediaPaths()...)
		return nil, err
	}
	post.Id = id
	return post, nil
}

// nextId advances the shared thread/post id sequence.
func (s *Thread) nextId(ctx context.Context) (int64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	var last int64
	if _, err := storage.GetJSON(ctx, s.store, storage.PostSequenceKey, &last); err != nil {
		return 0, fmt.Errorf("load id sequence: %w", err)
	}
	next := last + 1
	if err := storage.SetJSON(ctx, s.store, storage.PostSequenceKey, next); err != nil {
		return 0, fmt.Errorf("save id sequence: %w", err)
	}
	return next, nil
}

func (s *Thread) load(ctx context.Context, boardId domain.BoardId) ([]domain.Thread, error) {
	var threads []domain.Thread
	if _, err := storage.GetJSON(ctx, s.store, storage.ThreadsKey(boardId), &threads); err != nil {
		return nil, fmt.Errorf("load threads of %s: %w", boardId, err)
	}
	return threads, nil
}

func (s *Thread) save(ctx context.Context, boardId domain.BoardId, threads []domain.Thread) error {
	if threads == nil {
		threads = []domain.Thread{}
	}
	if err := storage.SetJSON(ctx, s.store, storage.ThreadsKey(boardId), threads); err != nil {
		return fmt.Errorf("save threads of %s: %w", boardId, err)
	}
	return nil
}

func sortByActivity(threads []domain.Thread) {
	slices.SortStableFunc(threads, func(a, b domain.Thread) int {
		return b.LastPostTime.Compare(a.LastPostTime)
	})
}

// capThreads keeps the limit most recently active threads and returns the rest as evicted.
func capThreads(threads []domain.Thread, limit int) ([]domain.Thread, []domain.Thread) {
	sortByActivity(threads)
	if len(threads) <= limit {
		return threads, nil
	}
	return threads[:limit], slices.Clone(threads[limit:])
}

// capPosts keeps the newest limit posts and returns the older ones as trimmed.
func capPosts(posts []domain.Post, limit int) ([]domain.Post, []domain.Post) {
	if len(posts) <= limit {
		return posts, nil
	}
	cut := len(posts) - limit
	return slices.Clone(posts[cut:]), posts[:cut]
}

// keyedMutex hands out one mutex per key. Keys are board ids, so the map stays small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func (k *keyedMutex) Lock(key string) {
	k.get(key).Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}
