package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

type CandidateRepository interface {
	ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionCandidate, error)
	GetCandidate(ctx context.Context, electionID, candidateID uuid.UUID) (*domain.ElectionCandidate, error)
	CreateCandidate(ctx context.Context, candidate *domain.ElectionCandidate) error
	UpdateCandidate(ctx context.Context, candidate *domain.ElectionCandidate) error
	DeleteCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error
}

type CandidateInput struct {
	Name             string
	Description      string
	ProfileImagePath string
	Number           int
}

type CandidateService interface {
	ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionCandidate, error)
	CreateCandidate(ctx context.Context, electionID uuid.UUID, input CandidateInput) (*domain.ElectionCandidate, error)
	UpdateCandidate(ctx context.Context, electionID, candidateID uuid.UUID, input CandidateInput) (*domain.ElectionCandidate, error)
	DeleteCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error
}
