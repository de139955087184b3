package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/invitations"
	"brokerhub/internal/pkg/errors"
)

type InvitationHandler struct {
	invitations *invitations.Service
}

func NewInvitationHandler(invitations *invitations.Service) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req invitations.InviteRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}

	res, err := h.invitations.Invite(r.Context(), apiContext.AuthFrom(r.Context()), req)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	invs, err := h.invitations.List(r.Context(), apiContext.AuthFrom(r.Context()))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (h *InvitationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.invitations.Cancel(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id")); err != nil {
		errors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
