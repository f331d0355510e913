package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"campaignScope/internal/query"
)

type handlers struct {
	campaigns CampaignLister
	ready     ReadyFunc
	logger    *zap.Logger
}

type errorResponse struct {
	ErrMsg     string `json:"error"`
	ErrMsgCode int    `json:"code"`
}

func (h *handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	records, err := h.campaigns.ListCampaigns(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *handlers) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}
	if err := h.ready(r.Context()); err != nil {
		h.logger.Debug("not ready", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, &errorResponse{
			ErrMsg:     "not ready",
			ErrMsgCode: http.StatusServiceUnavailable,
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// writeError maps service errors to a status; details never reach the client.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Unexpected Service Error"
	if errors.Is(err, query.ErrUnavailable) {
		status = http.StatusServiceUnavailable
		msg = "service unavailable"
	} else {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, &errorResponse{ErrMsg: msg, ErrMsgCode: status})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
