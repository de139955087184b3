package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/accounts"
	"brokerhub/internal/pkg/errors"
)

type OrgHandler struct {
	accounts *accounts.Service
}

func NewOrgHandler(accounts *accounts.Service) *OrgHandler {
	return &OrgHandler{accounts: accounts}
}

func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.accounts.GetOrganisation(r.Context(), apiContext.AuthFrom(r.Context()))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrgHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req accounts.UpdateOrganisationRequest
	if err := decode(w, r, &req); err != nil {
		errors.Write(w, err)
		return
	}

	org, err := h.accounts.UpdateOrganisation(r.Context(), apiContext.AuthFrom(r.Context()), req)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}
