package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/templates"
	"github.com/itchan-dev/schan/internal/utils"
)

func (h *Handler) IndexGetHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	boards, err := h.Boards.List(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var data struct {
		Boards []domain.Board
	}
	data.Boards = boards
	h.renderTemplate(w, s, templates.Index, data)
}

func (h *Handler) BoardGetHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	boardId := chi.URLParam(r, "boardId")

	board, err := h.Boards.Get(r.Context(), boardId)
	if err != nil {
		writeNotFoundText(w, err)
		return
	}
	threads, err := h.Threads.ListThreads(r.Context(), boardId)
	if err != nil {
		writeNotFoundText(w, err)
		return
	}

	code, err := h.newCaptcha(s)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var data struct {
		Board   *domain.Board
		Threads []domain.Thread
		Form    templates.FormView
	}
	data.Board = board
	data.Threads = threads
	data.Form = templates.FormView{
		Action:      boardURL(boardId) + "/thread",
		WithSubject: true,
		CaptchaCode: code,
		MaxFileSize: h.MaxFileSize,
	}
	h.renderTemplate(w, s, templates.Board, data)
}

func (h *Handler) ThreadGetHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	boardId := chi.URLParam(r, "boardId")

	board, err := h.Boards.Get(r.Context(), boardId)
	if err != nil {
		writeNotFoundText(w, err)
		return
	}

	threadId, err := strconv.ParseInt(chi.URLParam(r, "threadId"), 10, 64)
	if err != nil {
		http.Error(w, "Thread not found", http.StatusNotFound)
		return
	}
	thread, err := h.Threads.GetThread(r.Context(), boardId, threadId)
	if err != nil {
		writeNotFoundText(w, err)
		return
	}

	code, err := h.newCaptcha(s)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var data struct {
		Board  *domain.Board
		Thread *domain.Thread
		Form   templates.FormView
	}
	data.Board = board
	data.Thread = thread
	data.Form = templates.FormView{
		Action:      threadURL(boardId, threadId) + "/reply",
		CaptchaCode: code,
		MaxFileSize: h.MaxFileSize,
	}
	h.renderTemplate(w, s, templates.Thread, data)
}

// writeNotFoundText answers page requests for missing boards and threads with plain text.
func writeNotFoundText(w http.ResponseWriter, err error) {
	if errors.Is(err, internal_errors.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	logger.Log.Error("failed to load page data", "component", "handler", "error", err)
	utils.WriteErrorAndStatusCode(w, err)
}
