package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

func newElection(t *testing.T, s *Store) *domain.Election {
	t.Helper()
	e := &domain.Election{
		ID:          uuid.New(),
		Name:        "Council",
		Type:        domain.ElectionTypeOnline,
		OpenVoting:  time.Date(2030, time.January, 5, 0, 0, 0, 0, time.UTC),
		CloseVoting: time.Date(2030, time.January, 6, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateElection(context.Background(), e))
	return e
}

func TestVersionedWrites(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	e := newElection(t, s)
	assert.Equal(t, int64(1), e.Version)

	require.NoError(t, s.CancelElectionByID(ctx, e.ID, 1, &ports.KeysDestroyInfo{At: e.OpenVoting, Duration: time.Hour}))
	assert.ErrorIs(t, s.PublishElectionByID(ctx, e.ID, 1, e.OpenVoting, nil), domain.ErrElectionVersionConflict)
	assert.ErrorIs(t, s.DeleteElection(ctx, uuid.New(), 1), domain.ErrElectionNotFound)

	stored, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.True(t, stored.IsCancelled)
	assert.Equal(t, domain.KeysStatusDestroyed, stored.KeysStatus)

	stored.Name = "mutated copy"
	again, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Council", again.Name)
}

func TestUpdateResultIsAllOrNothing(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	e := newElection(t, s)
	c := domain.ElectionCandidate{ID: uuid.New(), ElectionID: e.ID, Name: "Ada", Number: 1}
	require.NoError(t, s.CreateCandidate(ctx, &c))

	err := s.UpdateElectionOnlineResult(ctx, e.ID, 1, domain.OnlineResultStatusCountSuccess, []domain.CandidateVotes{
		{CandidateID: c.ID, Votes: 4},
		{CandidateID: uuid.New(), Votes: 1},
	})
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)

	stored, err := s.GetCandidate(ctx, e.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VoteOnline)

	require.NoError(t, s.UpdateElectionOnlineResult(ctx, e.ID, 1, domain.OnlineResultStatusCountSuccess, []domain.CandidateVotes{{CandidateID: c.ID, Votes: 4}}))
	require.NoError(t, s.UpdateElectionOnlineResult(ctx, e.ID, 2, domain.OnlineResultStatusCountFailed, nil))

	stored, err = s.GetCandidate(ctx, e.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VoteOnline)
	election, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OnlineResultStatusCountFailed, election.OnlineResultStatus)
}

func TestBulkCreateEligibleVoters(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	e := newElection(t, s)
	first, second := uuid.New(), uuid.New()

	require.NoError(t, s.BulkCreateEligibleVoters(ctx, []domain.EligibleVoter{
		{ElectionID: e.ID, UserID: first, Type: domain.EligibleVoterTypeOnline},
	}))
	err := s.BulkCreateEligibleVoters(ctx, []domain.EligibleVoter{
		{ElectionID: e.ID, UserID: second, Type: domain.EligibleVoterTypeOnline},
		{ElectionID: e.ID, UserID: first, Type: domain.EligibleVoterTypeOnline},
	})
	assert.ErrorIs(t, err, domain.ErrEligibleVoterExists)

	n, err := s.CountElectionEligibleVoters(ctx, e.ID, domain.EligibleVoterTypeOnline)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
