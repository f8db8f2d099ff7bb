package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

type UploadOnlineResultInput struct {
	Status    domain.OnlineResultStatus
	Signature string
	Results   []domain.CandidateVotes
}

type AnnounceResultInput struct {
	Start time.Time
	End   time.Time
}

type ResultService interface {
	UploadElectionOnsiteResult(ctx context.Context, electionID uuid.UUID, votes []domain.CandidateVotes) (*domain.Election, error)
	UploadElectionOnlineResult(ctx context.Context, electionID uuid.UUID, input UploadOnlineResultInput) (*domain.Election, error)
	CountBallots(ctx context.Context, electionID uuid.UUID) (*domain.Election, error)
	AnnounceElectionResult(ctx context.Context, electionID uuid.UUID, input AnnounceResultInput) (*domain.Election, error)
	GetElectionResult(ctx context.Context, electionID uuid.UUID) (*domain.ElectionResult, error)
}

// TallyService drives ballot counting for every election waiting on it.
type TallyService interface {
	CountAllPendingElections(ctx context.Context) error
}
