package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type EligibleVoterHandler struct {
	service ports.EligibleVoterService
}

func NewEligibleVoterHandler(service ports.EligibleVoterService) *EligibleVoterHandler {
	return &EligibleVoterHandler{
		service: service,
	}
}

// eligibleVotersRequest is the identifier union: user_ids for USER_ID,
// phone_numbers for PHONE_NUMBER.
type eligibleVotersRequest struct {
	Identifier   domain.VoterIdentifier   `json:"identifier"`
	UserIDs      []uuid.UUID              `json:"user_ids"`
	PhoneNumbers []string                 `json:"phone_numbers"`
	Type         domain.EligibleVoterType `json:"type"`
}

func (req eligibleVotersRequest) input() ports.EligibleVotersInput {
	return ports.EligibleVotersInput{
		Identifier:   req.Identifier,
		UserIDs:      req.UserIDs,
		PhoneNumbers: req.PhoneNumbers,
		Type:         req.Type,
	}
}

type deleteEligibleVotersResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *EligibleVoterHandler) ListEligibleVoters(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	voters, err := h.service.ListEligibleVoters(r.Context(), electionID, ports.ListEligibleVotersInput{
		Filter:     domain.EligibleVoterFilter{Type: domain.EligibleVoterType(r.URL.Query().Get("type"))},
		Pagination: pagination(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}

// BulkCreateEligibleVoters godoc
// @Summary      Enrols eligible voters
// @Description  All-or-nothing: any unknown user, unresolved phone number or existing enrolment rejects the whole batch.
// @Tags         eligible-voters
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      404
// @Failure      409
// @Router       /admin/elections/{id}/eligible-voters [post]
func (h *EligibleVoterHandler) BulkCreateEligibleVoters(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req eligibleVotersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	voters, err := h.service.BulkCreateElectionEligibleVoters(r.Context(), electionID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, voters)
}

func (h *EligibleVoterHandler) DeleteEligibleVoters(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req eligibleVotersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	deleted, err := h.service.DeleteElectionEligibleVoters(r.Context(), electionID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteEligibleVotersResponse{Deleted: deleted})
}
