package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
	orchestratorx "github.com/tanpawarit/tenant-assistant/assistant/orchestrator"
)

// maxBodyBytes bounds a turn request body.
const maxBodyBytes = 64 << 10

type Service interface {
	SubmitTurn(ctx context.Context, tenantID, userID, message string) (orchestratorx.Reply, error)
	Transcript(ctx context.Context, tenantID, userID string, q contractx.ListQuery) ([]contractx.TranscriptEntry, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type turnRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type transcriptResponse struct {
	Entries []contractx.TranscriptEntry `json:"entries"`
}

func (h *Handler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	reply, err := h.svc.SubmitTurn(r.Context(),
		chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "userID"),
		payload.Message,
	)
	if err != nil {
		if errors.Is(err, contractx.ErrPersistenceFailure) && reply.Text != "" {
			hlog.FromRequest(r).Warn().Err(err).Msg("reply delivered without transcript")
			writeJSON(w, http.StatusAccepted, reply)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) ListTranscript(w http.ResponseWriter, r *http.Request) {
	var q contractx.ListQuery
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || after < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "after must be a non-negative integer"})
			return
		}
		q.AfterSeq = after
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		q.Limit = limit
	}

	entries, err := h.svc.Transcript(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Entries: entries})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		// client closed request
		return 499
	case errors.Is(err, contractx.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, contractx.ErrCompletionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, contractx.ErrCompletionRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contractx.ErrCompletionUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
