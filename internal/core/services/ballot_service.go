package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type ballotService struct {
	orchestrator
}

func NewBallotService(deps Dependencies) ports.BallotService {
	return &ballotService{orchestrator: newOrchestrator(deps)}
}

func (s *ballotService) SubmitBallot(ctx context.Context, input ports.SubmitBallotInput) (*domain.ElectionBallot, error) {
	if strings.TrimSpace(input.Ballot) == "" {
		return nil, domain.NewError(domain.CodeValidation, "ballot is required")
	}
	election, err := s.loadElection(ctx, input.ElectionID)
	if err != nil {
		return nil, err
	}
	if !election.Type.HasOnlineChannel() {
		return nil, domain.ErrInvalidElectionType
	}
	if election.IsCancelled {
		return nil, domain.ErrElectionCancelled
	}
	now := s.now()
	if domain.ComputeState(election, now) != domain.StateVotingOpen {
		return nil, domain.ErrElectionNotInVotePeriod
	}
	if election.KeysStatus != domain.KeysStatusCreated {
		return nil, domain.ErrKeysNotReady
	}

	voter, err := s.deps.EligibleVoters.GetEligibleVoter(ctx, election.ID, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrEligibleVoterNotFound) {
			return nil, domain.ErrNotEligibleVoter
		}
		return nil, storageError(err)
	}
	if voter.Type != domain.EligibleVoterTypeOnline {
		return nil, domain.ErrNotEligibleVoter
	}

	hasVoted, err := s.deps.Ballots.HasVoted(ctx, election.ID, input.UserID)
	if err != nil {
		return nil, storageError(err)
	}
	if hasVoted {
		return nil, domain.ErrAlreadyVoted
	}

	ballot := &domain.ElectionBallot{
		ID:         s.newID(),
		ElectionID: election.ID,
		Ballot:     input.Ballot,
		CreatedAt:  now,
	}
	record := &domain.VoteRecord{
		ElectionID: election.ID,
		UserID:     input.UserID,
		BallotID:   &ballot.ID,
		CreatedAt:  now,
	}
	if err := s.deps.Ballots.SaveBallot(ctx, ballot, record); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("ballot submitted",
		"event", "election_ballot_submitted",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"ballot_id", ballot.ID.String(),
	)
	return ballot, nil
}

func (s *ballotService) HasVoted(ctx context.Context, electionID, userID uuid.UUID) (bool, error) {
	if _, err := s.loadElection(ctx, electionID); err != nil {
		return false, err
	}
	hasVoted, err := s.deps.Ballots.HasVoted(ctx, electionID, userID)
	if err != nil {
		return false, storageError(err)
	}
	return hasVoted, nil
}
