package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/itchan-dev/schan/internal/service"
	"github.com/itchan-dev/schan/internal/session"
)

// SessionDestroyer ends a visitor session on logout.
type SessionDestroyer interface {
	Destroy(w http.ResponseWriter, s *session.Session)
}

// Pinger reports whether the key-value store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Templates  map[string]*template.Template
	Boards     service.BoardService
	Threads    service.ThreadService
	Captcha    service.CaptchaService
	Moderation service.ModerationService
	Sessions   SessionDestroyer
	Store      Pinger

	MaxFileSize int64
	// AuthorPepper keys the hash that turns client addresses into poster ids.
	AuthorPepper string
	// TrustProxy takes the client address from proxy headers instead of the connection.
	TrustProxy bool
}

type Options struct {
	MaxFileSize  int64
	AuthorPepper string
	TrustProxy   bool
}

func New(
	templates map[string]*template.Template,
	boards service.BoardService,
	threads service.ThreadService,
	captcha service.CaptchaService,
	moderation service.ModerationService,
	sessions SessionDestroyer,
	store Pinger,
	opts Options,
) *Handler {
	return &Handler{
		Templates:    templates,
		Boards:       boards,
		Threads:      threads,
		Captcha:      captcha,
		Moderation:   moderation,
		Sessions:     sessions,
		Store:        store,
		MaxFileSize:  opts.MaxFileSize,
		AuthorPepper: opts.AuthorPepper,
		TrustProxy:   opts.TrustProxy,
	}
}

// session returns the request's session. Outside the session middleware a
// throwaway session keeps the handlers usable.
func (h *Handler) session(r *http.Request) *session.Session {
	if s := session.FromContext(r.Context()); s != nil {
		return s
	}
	return &session.Session{}
}
