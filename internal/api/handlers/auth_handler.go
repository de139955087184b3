package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/accounts"
	"brokerhub/internal/engine/invitations"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/auth"
)

type AuthHandler struct {
	accounts    *accounts.Service
	invitations *invitations.Service
}

func NewAuthHandler(accounts *accounts.Service, invitations *invitations.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts, invitations: invitations}
}

func (h *AuthHandler) SignupWithOrganisation(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}

	account, err := h.accounts.SignupWithOrganisation(r.Context(), apiContext.IdentityFrom(r.Context()), req)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type RedeemRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) RedeemInvitation(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}
	if req.Token == "" {
		errors.Write(w, errors.InvalidArgument("token is required"))
		return
	}

	account, err := h.invitations.Redeem(r.Context(), apiContext.IdentityFrom(r.Context()), req.Token)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Me(r.Context(), apiContext.AuthFrom(r.Context()))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) CheckMembership(w http.ResponseWriter, r *http.Request) {
	check, err := h.accounts.CheckMembership(r.Context(), apiContext.IdentityFrom(r.Context()))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Context       *auth.Context `json:"context,omitempty"`
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ac := apiContext.AuthFrom(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: ac != nil, Context: ac})
}
