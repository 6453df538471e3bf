package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/schan/internal/domain"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/utils"
)

func writeSuccess(w http.ResponseWriter) {
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request, actor domain.Role) {
	postId, err := strconv.ParseInt(chi.URLParam(r, "postId"), 10, 64)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.NotFound("Post not found"))
		return
	}
	if err := h.Moderation.DeletePost(r.Context(), postId, actor); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) AdminDeletePostHandler(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, domain.RoleAdmin)
}

func (h *Handler) ModDeletePostHandler(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, domain.RoleMod)
}

func (h *Handler) AdminDeleteBoardHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Moderation.DeleteBoard(r.Context(), chi.URLParam(r, "boardId")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) ModBanUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Moderation.BanUser(r.Context(), chi.URLParam(r, "userId")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) AdminUpdateBoardsHandler(w http.ResponseWriter, r *http.Request) {
	boards, err := h.Moderation.UpdateBoards(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Error updating boards",
			"error":   err.Error(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Boards updated successfully",
		"boards":  boards,
	})
}
