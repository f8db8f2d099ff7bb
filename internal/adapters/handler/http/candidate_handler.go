package http

import (
	"net/http"

	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type CandidateHandler struct {
	service ports.CandidateService
}

func NewCandidateHandler(service ports.CandidateService) *CandidateHandler {
	return &CandidateHandler{
		service: service,
	}
}

type candidateRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ProfileImagePath string `json:"profile_image_path"`
	Number           int    `json:"number"`
}

func (req candidateRequest) input() ports.CandidateInput {
	return ports.CandidateInput{
		Name:             req.Name,
		Description:      req.Description,
		ProfileImagePath: req.ProfileImagePath,
		Number:           req.Number,
	}
}

func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	candidates, err := h.service.ListCandidates(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *CandidateHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req candidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	candidate, err := h.service.CreateCandidate(r.Context(), electionID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate)
}

func (h *CandidateHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := uuidParam(w, r, "candidateId")
	if !ok {
		return
	}
	var req candidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	candidate, err := h.service.UpdateCandidate(r.Context(), electionID, candidateID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := uuidParam(w, r, "candidateId")
	if !ok {
		return
	}
	if err := h.service.DeleteCandidate(r.Context(), electionID, candidateID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
