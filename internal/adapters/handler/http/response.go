package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

type errorResponse struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeSignatureInvalid, domain.CodeVoteCountExceedsVoters:
		return http.StatusUnprocessableEntity
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code", "message"}. Internal details never
// reach the client.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Code: domain.CodeInternal, Message: "internal error"}
	var de *domain.Error
	if errors.As(err, &de) {
		resp = errorResponse{Code: de.Code, Message: de.Message}
	}
	status := statusFor(resp.Code)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "event", "http_request_failed", "code", string(resp.Code), "error", err.Error())
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "event", "http_encode_failed", "error", err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, domain.NewError(domain.CodeValidation, "invalid request body"))
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, domain.NewError(domain.CodeValidation, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
