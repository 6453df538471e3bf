package handler

import (
	"net/http"

	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/session"
	"github.com/itchan-dev/schan/internal/utils"
)

// newCaptcha issues a code and stores it in the session.
func (h *Handler) newCaptcha(s *session.Session) (string, error) {
	code, err := h.Captcha.Generate()
	if err != nil {
		return "", err
	}
	s.CaptchaCode = code
	return code, nil
}

func (h *Handler) RefreshCaptchaHandler(w http.ResponseWriter, r *http.Request) {
	code, err := h.newCaptcha(h.session(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"captchaCode": code})
}

func (h *Handler) SpecialNamesHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string][]string{"encodedNames": h.Captcha.EncodedSpecialNames()})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		logger.Log.Error("health check failed", "component", "handler", "error", err)
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
