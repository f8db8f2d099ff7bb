package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

type BallotRepository interface {
	// SaveBallot stores the ballot and the voter's vote record in one
	// transaction. A second record for the same voter fails with
	// domain.ErrAlreadyVoted.
	SaveBallot(ctx context.Context, ballot *domain.ElectionBallot, record *domain.VoteRecord) error
	HasVoted(ctx context.Context, electionID, userID uuid.UUID) (bool, error)
	ListElectionBallots(ctx context.Context, electionID uuid.UUID) ([]domain.ElectionBallot, error)
	UnlinkVoteRecordsToBallots(ctx context.Context, electionID uuid.UUID) (int64, error)
}

type SubmitBallotInput struct {
	ElectionID uuid.UUID
	UserID     uuid.UUID
	Ballot     string
}

type BallotService interface {
	SubmitBallot(ctx context.Context, input SubmitBallotInput) (*domain.ElectionBallot, error)
	HasVoted(ctx context.Context, electionID, userID uuid.UUID) (bool, error)
}
