package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

type CandidateVotes struct {
	CandidateID uuid.UUID `json:"candidateId"`
	Votes       int64     `json:"votes"`
}

// SumVotes adds up all votes of a result payload.
func SumVotes(votes []CandidateVotes) int64 {
	var total int64
	for _, v := range votes {
		total += v.Votes
	}
	return total
}

// CanonicalResultPayload is the byte sequence the key service signs when it
// reports an online result: compact JSON with results ordered by candidate id.
func CanonicalResultPayload(electionID uuid.UUID, votes []CandidateVotes) ([]byte, error) {
	sorted := make([]CandidateVotes, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CandidateID.String() < sorted[j].CandidateID.String()
	})
	return json.Marshal(struct {
		ElectionID uuid.UUID        `json:"electionId"`
		Results    []CandidateVotes `json:"results"`
	}{ElectionID: electionID, Results: sorted})
}

type CandidateResult struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Number      int       `json:"number"`
	Name        string    `json:"name"`
	Online      int64     `json:"online"`
	Onsite      int64     `json:"onsite"`
	Total       int64     `json:"total"`
	Percentage  float64   `json:"percentage"`
	Rank        int       `json:"rank"`
}

type ElectionResult struct {
	ElectionID           uuid.UUID          `json:"election_id"`
	Name                 string             `json:"name"`
	Type                 ElectionType       `json:"type"`
	OnlineResultStatus   OnlineResultStatus `json:"online_result_status"`
	Announced            bool               `json:"announced"`
	StartResult          *time.Time         `json:"start_result,omitempty"`
	EndResult            *time.Time         `json:"end_result,omitempty"`
	OnlineEligibleVoters int64              `json:"online_eligible_voters"`
	OnsiteEligibleVoters int64              `json:"onsite_eligible_voters"`
	OnlineVotes          int64              `json:"online_votes"`
	OnsiteVotes          int64              `json:"onsite_votes"`
	TotalVotes           int64              `json:"total_votes"`
	Turnout              float64            `json:"turnout"`
	Candidates           []CandidateResult  `json:"candidates"`
}

// BuildElectionResult aggregates per-channel candidate votes into a ranked
// summary. Candidates with equal totals share a rank and are ordered by
// number.
func BuildElectionResult(e *Election, candidates []ElectionCandidate, onlineVoters, onsiteVoters int64) ElectionResult {
	result := ElectionResult{
		ElectionID:           e.ID,
		Name:                 e.Name,
		Type:                 e.Type,
		OnlineResultStatus:   e.OnlineResultStatus,
		Announced:            e.StartResult != nil,
		StartResult:          e.StartResult,
		EndResult:            e.EndResult,
		OnlineEligibleVoters: onlineVoters,
		OnsiteEligibleVoters: onsiteVoters,
		Candidates:           make([]CandidateResult, 0, len(candidates)),
	}

	for _, c := range candidates {
		cr := CandidateResult{CandidateID: c.ID, Number: c.Number, Name: c.Name}
		if c.VoteOnline != nil {
			cr.Online = *c.VoteOnline
		}
		if c.VoteOnsite != nil {
			cr.Onsite = *c.VoteOnsite
		}
		cr.Total = cr.Online + cr.Onsite
		result.OnlineVotes += cr.Online
		result.OnsiteVotes += cr.Onsite
		result.Candidates = append(result.Candidates, cr)
	}
	result.TotalVotes = result.OnlineVotes + result.OnsiteVotes

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		a, b := result.Candidates[i], result.Candidates[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Number < b.Number
	})
	for i := range result.Candidates {
		c := &result.Candidates[i]
		if result.TotalVotes > 0 {
			c.Percentage = float64(c.Total) / float64(result.TotalVotes) * 100
		}
		if i > 0 && result.Candidates[i-1].Total == c.Total {
			c.Rank = result.Candidates[i-1].Rank
		} else {
			c.Rank = i + 1
		}
	}

	if eligible := onlineVoters + onsiteVoters; eligible > 0 {
		result.Turnout = float64(result.TotalVotes) / float64(eligible) * 100
	}
	return result
}
