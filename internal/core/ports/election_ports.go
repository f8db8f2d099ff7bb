package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

// KeysDestroyInfo is what the key service reports when it schedules the
// destruction of an election's key material.
type KeysDestroyInfo struct {
	At       time.Time
	Duration time.Duration
}

type KeysUpdate struct {
	Status              domain.KeysStatus
	EncryptionPublicKey string
	SigningPublicKey    string
}

// ElectionRepository persists the election aggregate. Every write takes the
// version the caller read and fails with domain.ErrElectionVersionConflict
// when the row changed in between, or domain.ErrElectionNotFound when it is
// gone. Successful writes bump the stored version.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election *domain.Election) error
	GetElectionByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	UpdateElection(ctx context.Context, election *domain.Election) error
	DeleteElection(ctx context.Context, id uuid.UUID, version int64) error
	ListElections(ctx context.Context, filter domain.ElectionFilter, pagination domain.Pagination) ([]*domain.Election, error)
	ListElectionsAwaitingCount(ctx context.Context, now time.Time) ([]*domain.Election, error)

	UpdateElectionKeys(ctx context.Context, id uuid.UUID, version int64, update KeysUpdate) error
	CancelElectionByID(ctx context.Context, id uuid.UUID, version int64, destroyed *KeysDestroyInfo) error
	PublishElectionByID(ctx context.Context, id uuid.UUID, version int64, publishDate time.Time, destroyed *KeysDestroyInfo) error
	MakeElectionSecureMode(ctx context.Context, id uuid.UUID, version int64, destroyed *KeysDestroyInfo) error
	AnnounceElectionResult(ctx context.Context, id uuid.UUID, version int64, start, end time.Time, destroyed *KeysDestroyInfo) error

	// UpdateElectionOnsiteResult and UpdateElectionOnlineResult write the
	// per-candidate votes of one channel and the election row atomically.
	UpdateElectionOnsiteResult(ctx context.Context, id uuid.UUID, version int64, votes []domain.CandidateVotes) error
	UpdateElectionOnlineResult(ctx context.Context, id uuid.UUID, version int64, status domain.OnlineResultStatus, votes []domain.CandidateVotes) error
}

type CreateElectionInput struct {
	Type    domain.ElectionType
	Mode    domain.ElectionMode
	Details domain.ElectionDetails
}

type UpdateElectionInput struct {
	Details domain.ElectionDetails
}

type ListElectionsInput struct {
	Filter     domain.ElectionFilter
	Pagination domain.Pagination
}

type UpdateElectionKeysInput struct {
	Status              domain.KeysStatus
	EncryptionPublicKey string
	SigningPublicKey    string
}

type ElectionService interface {
	CreateElection(ctx context.Context, input CreateElectionInput) (*domain.Election, error)
	GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	ListElections(ctx context.Context, input ListElectionsInput) ([]*domain.Election, error)
	UpdateElection(ctx context.Context, id uuid.UUID, input UpdateElectionInput) (*domain.Election, error)
	DeleteElection(ctx context.Context, id uuid.UUID) error
	PublishElection(ctx context.Context, id uuid.UUID, publishDate time.Time) (*domain.Election, error)
	CancelElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	ChangeElectionSecureMode(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	SyncElectionKeys(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	UpdateElectionKeys(ctx context.Context, id uuid.UUID, input UpdateElectionKeysInput) (*domain.Election, error)
}
