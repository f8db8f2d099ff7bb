package http

import (
	"net/http"

	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type BallotHandler struct {
	service ports.BallotService
}

func NewBallotHandler(service ports.BallotService) *BallotHandler {
	return &BallotHandler{
		service: service,
	}
}

type submitBallotRequest struct {
	Ballot string `json:"ballot"`
}

type hasVotedResponse struct {
	Voted bool `json:"voted"`
}

// SubmitBallot godoc
// @Summary      Casts an encrypted ballot
// @Description  The ballot is encrypted with the election's public encryption key and stored as is.
// @Tags         ballots
// @Accept       json
// @Success      201
// @Failure      409
// @Failure      412
// @Router       /elections/{id}/ballots [post]
func (h *BallotHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}
	var req submitBallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ballot, err := h.service.SubmitBallot(r.Context(), ports.SubmitBallotInput{
		ElectionID: electionID,
		UserID:     userID,
		Ballot:     req.Ballot,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ballot)
}

func (h *BallotHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}
	voted, err := h.service.HasVoted(r.Context(), electionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hasVotedResponse{Voted: voted})
}
