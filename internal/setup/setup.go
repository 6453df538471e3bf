package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/schan/internal/config"
	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/handler"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/markdown"
	"github.com/itchan-dev/schan/internal/media"
	"github.com/itchan-dev/schan/internal/middleware"
	"github.com/itchan-dev/schan/internal/service"
	"github.com/itchan-dev/schan/internal/session"
	"github.com/itchan-dev/schan/internal/storage"
	"github.com/itchan-dev/schan/internal/storage/fs"
	"github.com/itchan-dev/schan/internal/storage/memory"
	"github.com/itchan-dev/schan/internal/storage/pg"
	"github.com/itchan-dev/schan/internal/storage/sqlite"
	"github.com/itchan-dev/schan/internal/templates"
	"golang.org/x/crypto/bcrypt"
)

// UploadsPrefix is the public URL prefix of stored media.
const UploadsPrefix = "/uploads"

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Store          storage.Store
	Files          *fs.Storage
	Boards         *service.Board
	Threads        *service.Thread
	Moderation     *service.Moderation
	Sessions       *session.Manager
	Handler        *handler.Handler
	AuthMiddleware *middleware.Auth
}

// OpenStore connects the key-value store selected by the config.
func OpenStore(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.DSN)
	case "postgres":
		return pg.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// SetupDependencies initializes all dependencies required for the application.
// The session cleanup goroutine runs until ctx is cancelled.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("can't open storage: %w", err)
	}

	deps, err := build(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return deps, nil
}

func build(ctx context.Context, cfg *config.Config, store storage.Store) (*Dependencies, error) {
	files, err := fs.New(cfg.Media.UploadsDir, UploadsPrefix)
	if err != nil {
		return nil, fmt.Errorf("can't prepare uploads dir: %w", err)
	}

	boards := service.NewBoard(store, domain.DefaultBoards)
	if err := boards.Init(ctx); err != nil {
		return nil, fmt.Errorf("can't initialize boards: %w", err)
	}

	bans := service.NewBans(store)
	mediaService := service.NewMedia(files, media.NewCompressor())
	threads := service.NewThread(store, boards, bans, mediaService)
	captcha := service.NewCaptcha(cfg.Captcha.EncodedSpecialNames)

	moderation, err := service.NewModeration(cfg.Private.AdminPassword, cfg.Private.ModPassword, bcrypt.DefaultCost, boards, threads, bans)
	if err != nil {
		return nil, fmt.Errorf("can't hash moderation secrets: %w", err)
	}
	if cfg.UsesDefaultSecret() {
		logger.Log.Warn("SESSION_SECRET is not set, using the built-in key", "component", "setup")
	}

	gc := service.NewMediaGarbageCollector(threads, files, cfg.Media.GCSafetyThreshold)
	gc.StartBackgroundCleanup(ctx, cfg.Media.GCInterval)

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Server.SecureCookies)
	sessions.StartBackgroundCleanup(ctx, cfg.Session.CleanupInterval)

	pages, err := templates.Load(templates.Funcs(markdown.New().RenderHTML))
	if err != nil {
		return nil, fmt.Errorf("can't load templates: %w", err)
	}

	h := handler.New(pages, boards, threads, captcha, moderation, sessions, store, handler.Options{
		MaxFileSize:  cfg.Media.MaxFileSize,
		AuthorPepper: cfg.Session.Secret,
		TrustProxy:   cfg.Server.TrustProxy,
	})

	return &Dependencies{
		Config:         cfg,
		Store:          store,
		Files:          files,
		Boards:         boards,
		Threads:        threads,
		Moderation:     moderation,
		Sessions:       sessions,
		Handler:        h,
		AuthMiddleware: middleware.NewAuth(moderation),
	}, nil
}

// Close releases the storage connection.
func (d *Dependencies) Close() error {
	return d.Store.Close()
}
