package handler

import (
	"mime"
	"net/http"

	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/utils"
)

type loginRequest struct {
	Password string `json:"password"`
}

// readPassword accepts a JSON body or a urlencoded/multipart form.
func readPassword(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body loginRequest
		if err := utils.DecodeValidate(r.Body, &body); err != nil {
			return "", err
		}
		return body.Password, nil
	}
	return r.FormValue("password"), nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, role domain.Role) {
	s := h.session(r)

	password, err := readPassword(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	granted, err := h.Moderation.Login(role, password)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	// admin keeps its higher role when it logs in as mod
	if !s.Role.Satisfies(granted) {
		s.Role = granted
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) LoginAdminHandler(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleAdmin)
}

func (h *Handler) LoginModHandler(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleMod)
}

// LogoutHandler destroys the whole session.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Destroy(w, h.session(r))
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
