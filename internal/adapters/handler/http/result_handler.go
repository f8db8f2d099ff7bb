package http

import (
	"net/http"
	"time"

	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type ResultHandler struct {
	service ports.ResultService
}

func NewResultHandler(service ports.ResultService) *ResultHandler {
	return &ResultHandler{
		service: service,
	}
}

type onsiteResultRequest struct {
	Results []domain.CandidateVotes `json:"results"`
}

type onlineResultRequest struct {
	Status    domain.OnlineResultStatus `json:"status"`
	Signature string                    `json:"signature"`
	Results   []domain.CandidateVotes   `json:"results"`
}

type announceResultRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (h *ResultHandler) UploadOnsiteResult(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req onsiteResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	election, err := h.service.UploadElectionOnsiteResult(r.Context(), electionID, req.Results)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

// UploadOnlineResult godoc
// @Summary      Key service callback with the online tally
// @Description  The signature covers {"electionId", "results"} with results ordered by candidate id.
// @Tags         internal
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      422
// @Router       /internal/elections/{id}/online-result [post]
func (h *ResultHandler) UploadOnlineResult(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req onlineResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	election, err := h.service.UploadElectionOnlineResult(r.Context(), electionID, ports.UploadOnlineResultInput{
		Status:    req.Status,
		Signature: req.Signature,
		Results:   req.Results,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ResultHandler) CountBallots(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	election, err := h.service.CountBallots(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ResultHandler) AnnounceResult(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req announceResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	election, err := h.service.AnnounceElectionResult(r.Context(), electionID, ports.AnnounceResultInput{
		Start: req.Start,
		End:   req.End,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ResultHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.GetElectionResult(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
