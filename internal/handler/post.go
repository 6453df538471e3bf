package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/service"
	"github.com/itchan-dev/schan/internal/session"
	"github.com/itchan-dev/schan/internal/utils"
	"github.com/itchan-dev/schan/internal/validation"
)

// multipart overhead allowed on top of the two attachments
const formBufferSize = 1 << 20

const (
	msgInvalidCaptcha = "Invalid captcha. Please try again."
	msgEmptyPost      = "Post must contain an image, video, or text"
	msgBoardNotFound  = "Board not found"
	msgThreadNotFound = "Thread not found"
	msgThreadCreated  = "Thread created successfully"
	msgReplyPosted    = "Reply posted successfully"
)

type postForm struct {
	name    string
	subject string
	content string
	uploads *validation.Uploads
}

// parsePostForm reads the multipart form. It writes the response itself and returns
// false when the request can't go on.
func (h *Handler) parsePostForm(w http.ResponseWriter, r *http.Request, s *session.Session, back string) (*postForm, bool) {
	maxSize := validation.CalculateMaxRequestSize(h.MaxFileSize, formBufferSize)
	if err := validation.ValidateAndParseMultipart(r, w, maxSize); err != nil {
		if errors.Is(err, validation.ErrPayloadTooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		logger.Log.Debug("invalid post form", "component", "handler", "error", err)
		redirectWithFlash(w, r, s, domain.FlashError, "Invalid form submission", back)
		return nil, false
	}

	uploads, err := validation.ValidateUploads(r.MultipartForm, h.MaxFileSize)
	if err != nil {
		if errors.Is(err, validation.ErrPayloadTooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		redirectWithFlash(w, r, s, domain.FlashError, uploadErrorMessage(err), back)
		return nil, false
	}

	return &postForm{
		name:    strings.TrimSpace(r.FormValue("name")),
		subject: strings.TrimSpace(r.FormValue("subject")),
		content: strings.TrimSpace(r.FormValue("content")),
		uploads: uploads,
	}, true
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrInvalidMimeType):
		return "Invalid file type. Images must be jpeg, jpg, png, gif or webp and videos mp4 or webm."
	case errors.Is(err, validation.ErrTooManyAttachments):
		return "Only one image and one video are allowed per post"
	case errors.Is(err, validation.ErrUnexpectedField):
		return "Unexpected file field"
	default:
		return "Invalid upload"
	}
}

// checkCaptcha writes the response and returns false unless the captcha is valid.
// The code is single use.
func (h *Handler) checkCaptcha(w http.ResponseWriter, r *http.Request, s *session.Session, name, back string) bool {
	result := h.Captcha.Verify(s.CaptchaCode, r.FormValue("captcha"), name)
	s.CaptchaCode = ""

	switch result {
	case service.CaptchaValid:
		return true
	case service.CaptchaSpecialNameFailed:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	default:
		redirectWithFlash(w, r, s, domain.FlashError, msgInvalidCaptcha, back)
		return false
	}
}

func (h *Handler) authorId(r *http.Request) domain.UserId {
	ip, err := utils.GetIP(r, h.TrustProxy)
	if err != nil {
		logger.Log.Warn("could not resolve client ip", "component", "handler", "error", err)
		return ""
	}
	return utils.PosterId(ip, h.AuthorPepper)
}

func (h *Handler) postData(r *http.Request, form *postForm) domain.PostCreationData {
	return domain.PostCreationData{
		Name:     form.name,
		Content:  form.content,
		Image:    form.uploads.Image,
		Video:    form.uploads.Video,
		AuthorId: h.authorId(r),
	}
}

// CreateThreadHandler handles POST /board/{boardId}/thread.
func (h *Handler) CreateThreadHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	boardId := chi.URLParam(r, "boardId")
	back := boardURL(boardId)

	form, ok := h.parsePostForm(w, r, s, back)
	if !ok {
		return
	}
	defer form.uploads.Close()

	if !h.checkCaptcha(w, r, s, form.name, back) {
		return
	}

	data := domain.ThreadCreationData{Subject: form.subject, OpPost: h.postData(r, form)}
	if !data.OpPost.HasPayload() {
		redirectWithFlash(w, r, s, domain.FlashError, msgEmptyPost, back)
		return
	}

	exists, err := h.Boards.Exists(r.Context(), boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if !exists {
		redirectWithFlash(w, r, s, domain.FlashError, msgBoardNotFound, "/")
		return
	}

	thread, err := h.Threads.CreateThread(r.Context(), boardId, data)
	if err != nil {
		h.handlePostError(w, r, s, err, boardId, back)
		return
	}

	logger.Log.Info("thread created", "component", "handler", "board", boardId, "thread_id", thread.Id)
	redirectWithFlash(w, r, s, domain.FlashSuccess, msgThreadCreated, threadURL(boardId, thread.Id))
}

// ReplyHandler handles POST /board/{boardId}/thread/{threadId}/reply.
func (h *Handler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	boardId := chi.URLParam(r, "boardId")
	threadIdStr := chi.URLParam(r, "threadId")
	threadId, convErr := strconv.ParseInt(threadIdStr, 10, 64)
	back := boardURL(boardId) + "/thread/" + threadIdStr

	form, ok := h.parsePostForm(w, r, s, back)
	if !ok {
		return
	}
	defer form.uploads.Close()

	if !h.checkCaptcha(w, r, s, form.name, back) {
		return
	}

	data := h.postData(r, form)
	if !data.HasPayload() {
		redirectWithFlash(w, r, s, domain.FlashError, msgEmptyPost, back)
		return
	}

	exists, err := h.Boards.Exists(r.Context(), boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if !exists {
		redirectWithFlash(w, r, s, domain.FlashError, msgBoardNotFound, "/")
		return
	}

	if convErr != nil {
		redirectWithFlash(w, r, s, domain.FlashError, msgThreadNotFound, boardURL(boardId))
		return
	}
	if _, err := h.Threads.GetThread(r.Context(), boardId, threadId); err != nil {
		if errors.Is(err, internal_errors.ErrNotFound) {
			redirectWithFlash(w, r, s, domain.FlashError, msgThreadNotFound, boardURL(boardId))
			return
		}
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	post, err := h.Threads.AppendReply(r.Context(), boardId, threadId, data)
	if err != nil {
		h.handlePostError(w, r, s, err, boardId, back)
		return
	}

	logger.Log.Info("reply created", "component", "handler", "board", boardId, "thread_id", threadId, "post_id", post.Id)
	redirectWithFlash(w, r, s, domain.FlashSuccess, msgReplyPosted, threadURL(boardId, threadId))
}

// handlePostError maps thread store errors raised after the pre-checks.
func (h *Handler) handlePostError(w http.ResponseWriter, r *http.Request, s *session.Session, err error, boardId domain.BoardId, back string) {
	switch {
	case errors.Is(err, internal_errors.ErrValidation), errors.Is(err, internal_errors.ErrBanned):
		redirectWithFlash(w, r, s, domain.FlashError, err.Error(), back)
	case errors.Is(err, internal_errors.ErrBoardNotFound):
		redirectWithFlash(w, r, s, domain.FlashError, msgBoardNotFound, "/")
	case errors.Is(err, internal_errors.ErrNotFound):
		redirectWithFlash(w, r, s, domain.FlashError, err.Error(), boardURL(boardId))
	default:
		logger.Log.Error("failed to create post", "component", "handler", "board", boardId, "error", err)
		utils.WriteErrorAndStatusCode(w, err)
	}
}
