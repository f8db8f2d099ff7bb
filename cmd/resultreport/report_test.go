package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

func TestPrintResult(t *testing.T) {
	result := &domain.ElectionResult{
		ElectionID:           uuid.New(),
		Name:                 "Board election",
		Type:                 domain.ElectionTypeHybrid,
		OnlineResultStatus:   domain.OnlineResultStatusCountSuccess,
		OnlineEligibleVoters: 1200,
		OnsiteEligibleVoters: 800,
		OnlineVotes:          1000,
		OnsiteVotes:          500,
		TotalVotes:           1500,
		Turnout:              75,
		Candidates: []domain.CandidateResult{
			{Number: 2, Name: "Bob", Online: 700, Onsite: 300, Total: 1000, Percentage: 66.67, Rank: 1},
			{Number: 1, Name: "Alice", Online: 300, Onsite: 200, Total: 500, Percentage: 33.33, Rank: 2},
		},
	}

	var buf bytes.Buffer
	printResult(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "Board election (HYBRID)")
	assert.Contains(t, out, "1,200 online, 800 onsite. Turnout 75.00%")
	assert.Contains(t, out, "CANDIDATE")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "66.67")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Bob")), bytes.Index(buf.Bytes(), []byte("Alice")))
}
