package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

// ErrKeyServiceTimeout is wrapped by key service clients when a call gave no
// definite answer: the remote side effect may or may not have happened.
var ErrKeyServiceTimeout = errors.New("key service request timed out")

type ElectionKeys struct {
	PublicEncrypt string `json:"publicEncrypt"`
	PublicSigning string `json:"publicSigning"`
}

type KeysDestroyResult struct {
	DestroyScheduledDuration time.Duration
}

// BallotTally is the key service answer to a count request. Results and
// Signature are empty when the service reports the result asynchronously.
type BallotTally struct {
	Status    domain.OnlineResultStatus
	Results   []domain.CandidateVotes
	Signature string
}

// KeyService is the external key management service. It owns all private
// key material; destroy and restore are each other's compensation.
type KeyService interface {
	CreateKeys(ctx context.Context, electionID uuid.UUID) (ElectionKeys, error)
	// GetKeys returns nil without error when the service holds no keys.
	GetKeys(ctx context.Context, electionID uuid.UUID) (*ElectionKeys, error)
	DestroyKeys(ctx context.Context, electionID uuid.UUID) (KeysDestroyResult, error)
	RestoreKeys(ctx context.Context, electionID uuid.UUID) error
	CountBallots(ctx context.Context, electionID uuid.UUID, ballots []domain.ElectionBallot) (BallotTally, error)
}
