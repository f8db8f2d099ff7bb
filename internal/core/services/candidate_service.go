package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type candidateService struct {
	orchestrator
}

func NewCandidateService(deps Dependencies) ports.CandidateService {
	return &candidateService{orchestrator: newOrchestrator(deps)}
}

func (s *candidateService) ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionCandidate, error) {
	if _, err := s.loadElection(ctx, electionID); err != nil {
		return nil, err
	}
	candidates, err := s.deps.Candidates.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, storageError(err)
	}
	return candidates, nil
}

func (s *candidateService) CreateCandidate(ctx context.Context, electionID uuid.UUID, input ports.CandidateInput) (*domain.ElectionCandidate, error) {
	if err := validateCandidateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.loadModifiableElection(ctx, electionID); err != nil {
		return nil, err
	}
	if err := s.checkCandidateUnique(ctx, electionID, uuid.Nil, input); err != nil {
		return nil, err
	}

	now := s.now()
	candidate := &domain.ElectionCandidate{
		ID:               s.newID(),
		ElectionID:       electionID,
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		ProfileImagePath: strings.TrimSpace(input.ProfileImagePath),
		Number:           input.Number,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.deps.Candidates.CreateCandidate(ctx, candidate); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("candidate created",
		"event", "election_candidate_created",
		"module", logModule,
		"layer", "application",
		"election_id", electionID.String(),
		"candidate_id", candidate.ID.String(),
		"number", candidate.Number,
	)
	return candidate, nil
}

func (s *candidateService) UpdateCandidate(ctx context.Context, electionID, candidateID uuid.UUID, input ports.CandidateInput) (*domain.ElectionCandidate, error) {
	if err := validateCandidateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.loadModifiableElection(ctx, electionID); err != nil {
		return nil, err
	}
	candidate, err := s.deps.Candidates.GetCandidate(ctx, electionID, candidateID)
	if err != nil {
		return nil, storageError(err)
	}
	if err := s.checkCandidateUnique(ctx, electionID, candidateID, input); err != nil {
		return nil, err
	}

	candidate.Name = strings.TrimSpace(input.Name)
	candidate.Description = input.Description
	candidate.ProfileImagePath = strings.TrimSpace(input.ProfileImagePath)
	candidate.Number = input.Number
	candidate.UpdatedAt = s.now()
	if err := s.deps.Candidates.UpdateCandidate(ctx, candidate); err != nil {
		return nil, storageError(err)
	}
	return candidate, nil
}

func (s *candidateService) DeleteCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error {
	if _, err := s.loadModifiableElection(ctx, electionID); err != nil {
		return err
	}
	if err := s.deps.Candidates.DeleteCandidate(ctx, electionID, candidateID); err != nil {
		return storageError(err)
	}

	s.logger.Info("candidate deleted",
		"event", "election_candidate_deleted",
		"module", logModule,
		"layer", "application",
		"election_id", electionID.String(),
		"candidate_id", candidateID.String(),
	)
	return nil
}

// loadModifiableElection loads the election and applies the guard shared by
// candidate and eligible voter mutations.
func (o orchestrator) loadModifiableElection(ctx context.Context, electionID uuid.UUID) (*domain.Election, error) {
	election, err := o.loadElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckIsElectionAllowedToModified(election, o.now()); err != nil {
		return nil, err
	}
	return election, nil
}

func (s *candidateService) checkCandidateUnique(ctx context.Context, electionID, candidateID uuid.UUID, input ports.CandidateInput) error {
	candidates, err := s.deps.Candidates.ListCandidates(ctx, electionID)
	if err != nil {
		return storageError(err)
	}
	name := strings.TrimSpace(input.Name)
	for _, c := range candidates {
		if c.ID == candidateID {
			continue
		}
		if c.Number == input.Number {
			return domain.ErrCandidateNumberTaken
		}
		if strings.EqualFold(c.Name, name) {
			return domain.ErrCandidateNameTaken
		}
	}
	return nil
}

func validateCandidateInput(input ports.CandidateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return domain.NewError(domain.CodeValidation, "candidate name is required")
	}
	if input.Number <= 0 {
		return domain.NewError(domain.CodeValidation, "candidate number must be positive")
	}
	return nil
}
