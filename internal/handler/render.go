package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/session"
)

type CommonTemplateData struct {
	Flash *domain.Flash
	Role  domain.Role
}

// TemplateData wraps page-specific data with common template data.
// Templates access page data via .Data and common data via .Common.
type TemplateData struct {
	Data   any
	Common CommonTemplateData
}

// renderTemplate consumes the pending flash of the session.
func (h *Handler) renderTemplate(w http.ResponseWriter, s *session.Session, name string, data any) {
	tmpl, ok := h.Templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	wrapped := TemplateData{
		Data: data,
		Common: CommonTemplateData{
			Flash: s.TakeFlash(),
			Role:  s.Role,
		},
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, wrapped); err != nil {
		logger.Log.Error("error executing template", "component", "handler", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, s *session.Session, flashType, message, target string) {
	s.SetFlash(flashType, message)
	http.Redirect(w, r, target, http.StatusFound)
}

func boardURL(boardId domain.BoardId) string {
	return "/board/" + boardId
}

func threadURL(boardId domain.BoardId, threadId domain.ThreadId) string {
	return fmt.Sprintf("/board/%s/thread/%d", boardId, threadId)
}
