package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/records"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/models"
)

type AgreementHandler struct {
	records *records.Service
}

func NewAgreementHandler(records *records.Service) *AgreementHandler {
	return &AgreementHandler{records: records}
}

func (h *AgreementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		errors.Write(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.Write(w, err)
		return
	}

	q := r.URL.Query()
	res, err := h.records.ListAgreements(r.Context(), apiContext.AuthFrom(r.Context()), records.AgreementQuery{
		Status:   models.AgreementStatus(q.Get("status")),
		ClientID: q.Get("client_id"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AgreementHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.records.GetAgreement(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AgreementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in records.AgreementInput
	if err := decode(w, r, &in); err != nil {
		errors.Write(w, err)
		return
	}

	a, err := h.records.CreateAgreement(r.Context(), apiContext.AuthFrom(r.Context()), in)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AgreementHandler) Propose(w http.ResponseWriter, r *http.Request) {
	a, err := h.records.ProposeAgreement(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AgreementHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.records.Dashboard(r.Context(), apiContext.AuthFrom(r.Context()))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
