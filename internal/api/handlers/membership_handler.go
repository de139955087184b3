package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/memberships"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/models"
)

type MembershipHandler struct {
	memberships *memberships.Service
}

func NewMembershipHandler(memberships *memberships.Service) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.MembershipStatus(r.URL.Query().Get("status"))

	ms, err := h.memberships.List(r.Context(), apiContext.AuthFrom(r.Context()), status)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *MembershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.memberships.Get(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MembershipHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req memberships.UpdateRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}

	m, err := h.memberships.Update(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"), req)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MembershipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.memberships.Remove(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id")); err != nil {
		errors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type TransferRequest struct {
	NewOwnerUserID string `json:"new_owner_user_id"`
}

func (h *MembershipHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}
	if req.NewOwnerUserID == "" {
		errors.Write(w, errors.InvalidArgument("new_owner_user_id is required"))
		return
	}

	if err := h.memberships.TransferOwnership(r.Context(), apiContext.AuthFrom(r.Context()), req.NewOwnerUserID); err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
