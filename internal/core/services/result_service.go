package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type resultService struct {
	orchestrator
}

func NewResultService(deps Dependencies) ports.ResultService {
	return &resultService{orchestrator: newOrchestrator(deps)}
}

func (s *resultService) UploadElectionOnsiteResult(ctx context.Context, electionID uuid.UUID, votes []domain.CandidateVotes) (*domain.Election, error) {
	election, err := s.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !election.Type.HasOnsiteChannel() {
		return nil, domain.ErrInvalidElectionType
	}
	if err := domain.CheckIsResultWindowOpen(election, s.now()); err != nil {
		return nil, err
	}
	if err := s.validateCandidateVotes(ctx, election.ID, votes); err != nil {
		return nil, err
	}
	// Walk-in voters may vote at an onsite-only venue without being
	// registered, so only hybrid elections are capped by their roster.
	if election.Type == domain.ElectionTypeHybrid {
		if err := s.checkVotesWithinRoster(ctx, election.ID, domain.EligibleVoterTypeOnsite, votes); err != nil {
			return nil, err
		}
	} else if err := checkVotesFitTotal(votes); err != nil {
		return nil, err
	}

	if err := s.deps.Elections.UpdateElectionOnsiteResult(ctx, election.ID, election.Version, votes); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("onsite result uploaded",
		"event", "election_onsite_result_uploaded",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"votes", domain.SumVotes(votes),
	)
	return s.loadElection(ctx, electionID)
}

func (s *resultService) UploadElectionOnlineResult(ctx context.Context, electionID uuid.UUID, input ports.UploadOnlineResultInput) (*domain.Election, error) {
	election, err := s.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !election.Type.HasOnlineChannel() {
		return nil, domain.ErrInvalidElectionType
	}
	if err := domain.CheckIsResultWindowOpen(election, s.now()); err != nil {
		return nil, err
	}
	if err := s.applyOnlineResult(ctx, election, input); err != nil {
		return nil, err
	}
	return s.loadElection(ctx, electionID)
}

func (s *resultService) applyOnlineResult(ctx context.Context, election *domain.Election, input ports.UploadOnlineResultInput) error {
	switch input.Status {
	case domain.OnlineResultStatusCountSuccess:
		if len(input.Results) == 0 {
			return domain.NewError(domain.CodeValidation, "result is required when count succeeded")
		}
		if strings.TrimSpace(input.Signature) == "" {
			return domain.NewError(domain.CodeValidation, "signature is required when count succeeded")
		}
		payload, err := domain.CanonicalResultPayload(election.ID, input.Results)
		if err != nil {
			return domain.WrapError(domain.CodeValidation, "result payload cannot be serialized", err)
		}
		if err := VerifyResultSignature(election.SigningPublicKey, payload, input.Signature); err != nil {
			s.logger.Warn("online result signature rejected",
				"event", "election_online_result_signature_invalid",
				"module", logModule,
				"layer", "application",
				"election_id", election.ID.String(),
			)
			return err
		}
		if err := s.validateCandidateVotes(ctx, election.ID, input.Results); err != nil {
			return err
		}
		if err := s.checkVotesWithinRoster(ctx, election.ID, domain.EligibleVoterTypeOnline, input.Results); err != nil {
			return err
		}
		if err := s.deps.Elections.UpdateElectionOnlineResult(ctx, election.ID, election.Version, input.Status, input.Results); err != nil {
			return storageError(err)
		}

	case domain.OnlineResultStatusCountFailed:
		if err := s.deps.Elections.UpdateElectionOnlineResult(ctx, election.ID, election.Version, input.Status, nil); err != nil {
			return storageError(err)
		}

	default:
		return domain.NewError(domain.CodeValidation, "status must be COUNT_SUCCESS or COUNT_FAILED")
	}

	s.logger.Info("online result recorded",
		"event", "election_online_result_recorded",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"status", string(input.Status),
		"votes", domain.SumVotes(input.Results),
	)
	return nil
}

// CountBallots hands the stored ballots to the key service for decryption
// and counting. A signed tally in the answer is recorded right away;
// otherwise the key service reports it later through the online result
// callback. Secure elections lose the voter to ballot link afterwards.
func (s *resultService) CountBallots(ctx context.Context, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !election.Type.HasOnlineChannel() {
		return nil, domain.ErrInvalidElectionType
	}
	if err := domain.CheckIsResultWindowOpen(election, s.now()); err != nil {
		return nil, err
	}
	if election.KeysStatus != domain.KeysStatusCreated {
		return nil, domain.ErrKeysNotReady
	}

	ballots, err := s.deps.Ballots.ListElectionBallots(ctx, election.ID)
	if err != nil {
		return nil, storageError(err)
	}
	tally, err := s.deps.Keys.CountBallots(ctx, election.ID, ballots)
	if err != nil {
		return nil, s.upstreamError("count ballots", election.ID, err)
	}

	s.logger.Info("ballots counted",
		"event", "election_ballots_counted",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"ballots", len(ballots),
		"status", string(tally.Status),
	)

	switch {
	case tally.Status == domain.OnlineResultStatusCountFailed:
		if err := s.applyOnlineResult(ctx, election, ports.UploadOnlineResultInput{Status: tally.Status}); err != nil {
			return nil, err
		}
		return s.loadElection(ctx, electionID)
	case tally.Status == domain.OnlineResultStatusCountSuccess && len(tally.Results) > 0:
		if err := s.applyOnlineResult(ctx, election, ports.UploadOnlineResultInput{
			Status:    tally.Status,
			Signature: tally.Signature,
			Results:   tally.Results,
		}); err != nil {
			return nil, err
		}
	}

	if election.IsSecure() {
		unlinked, err := s.deps.Ballots.UnlinkVoteRecordsToBallots(ctx, election.ID)
		if err != nil {
			return nil, storageError(err)
		}
		s.logger.Info("vote records unlinked from ballots",
			"event", "election_vote_records_unlinked",
			"module", logModule,
			"layer", "application",
			"election_id", election.ID.String(),
			"records", unlinked,
		)
	}
	return s.loadElection(ctx, electionID)
}

func (s *resultService) AnnounceElectionResult(ctx context.Context, electionID uuid.UUID, input ports.AnnounceResultInput) (*domain.Election, error) {
	now := s.now()
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, domain.NewError(domain.CodeValidation, "result start and end are required")
	}
	if input.Start.Before(now) || input.End.Before(now) {
		return nil, domain.NewError(domain.CodeValidation, "result period must not be in the past")
	}
	if !input.Start.Before(input.End) {
		return nil, domain.NewError(domain.CodeValidation, "result start must be before result end")
	}

	election, err := s.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.IsCancelled {
		return nil, domain.ErrElectionCancelled
	}
	switch domain.ComputeState(election, now) {
	case domain.StateResultAnnounced:
		return nil, domain.ErrResultAlreadyAnnounced
	case domain.StateDraft:
		return nil, domain.ErrElectionNotPublished
	case domain.StatePublishedPendingVote, domain.StateVotingOpen:
		return nil, domain.ErrVotingNotClosed
	}
	if election.Type.HasOnlineChannel() && election.OnlineResultStatus != domain.OnlineResultStatusCountSuccess {
		return nil, domain.ErrOnlineResultNotReady
	}

	// Secure elections give up their keys for good once results go out.
	destroy := election.IsSecure() && holdsKeys(election)
	err = s.runSaga(ctx, s.keysStep("announce election result", election.ID, destroy,
		func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error {
			return s.deps.Elections.AnnounceElectionResult(ctx, election.ID, election.Version,
				input.Start.UTC(), input.End.UTC(), destroyed)
		},
	))
	if err != nil {
		return nil, err
	}

	s.logger.Info("election result announced",
		"event", "election_result_announced",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"keys_destroyed", destroy,
	)
	return s.loadElection(ctx, electionID)
}

func (s *resultService) GetElectionResult(ctx context.Context, electionID uuid.UUID) (*domain.ElectionResult, error) {
	election, err := s.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.deps.Candidates.ListCandidates(ctx, election.ID)
	if err != nil {
		return nil, storageError(err)
	}
	online, err := s.deps.EligibleVoters.CountElectionEligibleVoters(ctx, election.ID, domain.EligibleVoterTypeOnline)
	if err != nil {
		return nil, storageError(err)
	}
	onsite, err := s.deps.EligibleVoters.CountElectionEligibleVoters(ctx, election.ID, domain.EligibleVoterTypeOnsite)
	if err != nil {
		return nil, storageError(err)
	}

	result := domain.BuildElectionResult(election, candidates, online, onsite)
	return &result, nil
}

// validateCandidateVotes requires one non-negative entry for every candidate
// of the election and nothing else.
func (s *resultService) validateCandidateVotes(ctx context.Context, electionID uuid.UUID, votes []domain.CandidateVotes) error {
	candidates, err := s.deps.Candidates.ListCandidates(ctx, electionID)
	if err != nil {
		return storageError(err)
	}
	known := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = false
	}
	for _, v := range votes {
		seen, ok := known[v.CandidateID]
		if !ok {
			return domain.WrapError(domain.CodeNotFound, domain.ErrCandidateNotFound.Message,
				fmt.Errorf("candidate %s is not part of election %s", v.CandidateID, electionID))
		}
		if seen {
			return domain.NewError(domain.CodeValidation, fmt.Sprintf("candidate %s is listed twice", v.CandidateID))
		}
		if v.Votes < 0 {
			return domain.NewError(domain.CodeValidation, "votes must not be negative")
		}
		known[v.CandidateID] = true
	}
	for id, seen := range known {
		if !seen {
			return domain.NewError(domain.CodeValidation, fmt.Sprintf("candidate %s is missing from the result", id))
		}
	}
	return nil
}

func (s *resultService) checkVotesWithinRoster(ctx context.Context, electionID uuid.UUID, voterType domain.EligibleVoterType, votes []domain.CandidateVotes) error {
	eligible, err := s.deps.EligibleVoters.CountElectionEligibleVoters(ctx, electionID, voterType)
	if err != nil {
		return storageError(err)
	}
	// total stays at or below eligible.
	var total int64
	for _, v := range votes {
		if v.Votes > eligible-total {
			return domain.WrapError(domain.CodeVoteCountExceedsVoters, domain.ErrVoteCountExceedsVoters.Message,
				fmt.Errorf("votes exceed the %d %s eligible voters", eligible, voterType))
		}
		total += v.Votes
	}
	return nil
}

// checkVotesFitTotal rejects uncapped results whose total does not fit in an
// int64.
func checkVotesFitTotal(votes []domain.CandidateVotes) error {
	var total int64
	for _, v := range votes {
		if v.Votes > math.MaxInt64-total {
			return domain.NewError(domain.CodeValidation, "vote counts are too large")
		}
		total += v.Votes
	}
	return nil
}
