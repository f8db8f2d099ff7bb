package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

// EligibleVoterRepository is the eligibility store. Bulk operations run as a
// single set operation and either apply to every row or to none.
type EligibleVoterRepository interface {
	ListEligibleVoters(ctx context.Context, electionID uuid.UUID, filter domain.EligibleVoterFilter, pagination domain.Pagination) ([]domain.EligibleVoter, error)
	GetEligibleVoter(ctx context.Context, electionID, userID uuid.UUID) (*domain.EligibleVoter, error)
	FilterExistingEligibleVoters(ctx context.Context, electionID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error)
	BulkCreateEligibleVoters(ctx context.Context, voters []domain.EligibleVoter) error
	BulkDeleteEligibleVoters(ctx context.Context, electionID uuid.UUID, userIDs []uuid.UUID) (int64, error)
	CountElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, voterType domain.EligibleVoterType) (int64, error)
}

type UserRepository interface {
	FilterExistUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
	ListUserIDsFromPhoneNumbers(ctx context.Context, phoneNumbers []string) (map[string]uuid.UUID, error)
}

// EligibleVotersInput identifies voters either by user id or by phone
// number, depending on Identifier.
type EligibleVotersInput struct {
	Identifier   domain.VoterIdentifier
	UserIDs      []uuid.UUID
	PhoneNumbers []string
	Type         domain.EligibleVoterType
}

type ListEligibleVotersInput struct {
	Filter     domain.EligibleVoterFilter
	Pagination domain.Pagination
}

type EligibleVoterService interface {
	ListEligibleVoters(ctx context.Context, electionID uuid.UUID, input ListEligibleVotersInput) ([]domain.EligibleVoter, error)
	BulkCreateElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, input EligibleVotersInput) ([]domain.EligibleVoter, error)
	DeleteElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, input EligibleVotersInput) (int64, error)
}
