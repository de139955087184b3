package handlers

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/audit"
)

type AuditHandler struct {
	recorder *audit.Recorder
}

func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.Write(w, err)
		return
	}

	logs, err := h.recorder.List(r.Context(), apiContext.AuthFrom(r.Context()), limit)
	if err != nil {
		errors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
