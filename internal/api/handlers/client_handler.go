package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/engine/records"
	"brokerhub/internal/pkg/errors"
)

// ClientHandler serves clients, policies, agreements and the dashboard, all
// backed by the records service.
type ClientHandler struct {
	records *records.Service
}

func NewClientHandler(records *records.Service) *ClientHandler {
	return &ClientHandler{records: records}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.records.ListClients(r.Context(), apiContext.AuthFrom(r.Context()), records.ClientQuery{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.records.GetClient(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in records.ClientInput
	if err := decode(w, r, &in); err != nil {
		errors.Write(w, err)
		return
	}

	c, err := h.records.CreateClient(r.Context(), apiContext.AuthFrom(r.Context()), in)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in records.ClientInput
	if err := decode(w, r, &in); err != nil {
		errors.Write(w, err)
		return
	}

	c, err := h.records.UpdateClient(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"), in)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.records.DeleteClient(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id")); err != nil {
		errors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	ps, err := h.records.ListPolicies(r.Context(), apiContext.AuthFrom(r.Context()), r.URL.Query().Get("client_id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ClientHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.records.GetPolicy(r.Context(), apiContext.AuthFrom(r.Context()), param(r, "id"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ClientHandler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var in records.PolicyInput
	if err := decode(w, r, &in); err != nil {
		errors.Write(w, err)
		return
	}

	p, err := h.records.CreatePolicy(r.Context(), apiContext.AuthFrom(r.Context()), in)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
