package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type electionService struct {
	orchestrator
}

func NewElectionService(deps Dependencies) ports.ElectionService {
	return &electionService{orchestrator: newOrchestrator(deps)}
}

func (s *electionService) CreateElection(ctx context.Context, input ports.CreateElectionInput) (*domain.Election, error) {
	mode := input.Mode
	if mode == "" {
		mode = domain.ElectionModeNormal
	}
	if mode != domain.ElectionModeNormal && mode != domain.ElectionModeSecure {
		return nil, domain.NewError(domain.CodeValidation, "election mode must be NORMAL or SECURE")
	}
	if err := domain.ValidateElectionDetails(input.Type, input.Details); err != nil {
		return nil, err
	}

	now := s.now()
	election := &domain.Election{
		ID:                 s.newID(),
		Type:               input.Type,
		Mode:               mode,
		KeysStatus:         domain.KeysStatusPendingCreated,
		OnlineResultStatus: domain.OnlineResultStatusUnset,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	election.ApplyDetails(input.Details)

	err := s.runSaga(ctx, sagaStep{
		name:       "create election",
		electionID: election.ID,
		remote: func(ctx context.Context) error {
			keys, err := s.deps.Keys.CreateKeys(ctx, election.ID)
			if err != nil {
				return err
			}
			// Public halves are kept, but the keys only count as CREATED once
			// the key service confirms them.
			election.EncryptionPublicKey = keys.PublicEncrypt
			election.SigningPublicKey = keys.PublicSigning
			return nil
		},
		local: func(ctx context.Context) error {
			return s.deps.Elections.CreateElection(ctx, election)
		},
		compensate: func(ctx context.Context) error {
			_, err := s.deps.Keys.DestroyKeys(ctx, election.ID)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("election created",
		"event", "election_created",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"type", string(election.Type),
		"mode", string(election.Mode),
	)
	return election, nil
}

func (s *electionService) GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return s.loadElection(ctx, id)
}

func (s *electionService) ListElections(ctx context.Context, input ports.ListElectionsInput) ([]*domain.Election, error) {
	if input.Filter.Type != "" && !input.Filter.Type.Valid() {
		return nil, domain.NewError(domain.CodeValidation, "invalid election type filter")
	}
	input.Filter.Query = strings.TrimSpace(input.Filter.Query)
	elections, err := s.deps.Elections.ListElections(ctx, input.Filter, input.Pagination.Normalize())
	if err != nil {
		return nil, storageError(err)
	}
	return elections, nil
}

func (s *electionService) UpdateElection(ctx context.Context, id uuid.UUID, input ports.UpdateElectionInput) (*domain.Election, error) {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkIsDraft(election); err != nil {
		return nil, err
	}
	if err := domain.ValidateElectionDetails(election.Type, input.Details); err != nil {
		return nil, err
	}

	election.ApplyDetails(input.Details)
	election.UpdatedAt = s.now()
	if err := s.deps.Elections.UpdateElection(ctx, election); err != nil {
		return nil, storageError(err)
	}
	return election, nil
}

func (s *electionService) DeleteElection(ctx context.Context, id uuid.UUID) error {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return err
	}
	if election.IsPublished() {
		return domain.ErrElectionAlreadyPublished
	}

	// Keys are created for every draft, onsite ones included.
	destroy := election.KeysStatus != domain.KeysStatusDestroyed
	err = s.runSaga(ctx, s.keysStep("delete election", election.ID, destroy,
		func(ctx context.Context, _ *ports.KeysDestroyInfo) error {
			return s.deps.Elections.DeleteElection(ctx, election.ID, election.Version)
		},
	))
	if err != nil {
		return err
	}

	s.logger.Info("election deleted",
		"event", "election_deleted",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
	)
	return nil
}

func (s *electionService) PublishElection(ctx context.Context, id uuid.UUID, publishDate time.Time) (*domain.Election, error) {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkIsPublishable(election, now); err != nil {
		return nil, err
	}
	if publishDate.IsZero() {
		publishDate = now
	}

	// Onsite elections are counted by hand, so their keys go with publishing.
	destroy := election.Type == domain.ElectionTypeOnsite && election.KeysStatus != domain.KeysStatusDestroyed
	err = s.runSaga(ctx, s.keysStep("publish election", election.ID, destroy,
		func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error {
			return s.deps.Elections.PublishElectionByID(ctx, election.ID, election.Version, publishDate.UTC(), destroyed)
		},
	))
	if err != nil {
		return nil, err
	}

	s.logger.Info("election published",
		"event", "election_published",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"keys_destroyed", destroy,
	)
	return s.loadElection(ctx, id)
}

func (s *electionService) CancelElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if election.IsCancelled {
		return nil, domain.ErrElectionCancelled
	}
	if domain.ComputeState(election, s.now()) == domain.StateResultAnnounced {
		return nil, domain.ErrResultAlreadyAnnounced
	}

	err = s.runSaga(ctx, s.keysStep("cancel election", election.ID, holdsKeys(election),
		func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error {
			return s.deps.Elections.CancelElectionByID(ctx, election.ID, election.Version, destroyed)
		},
	))
	if err != nil {
		return nil, err
	}

	s.logger.Info("election cancelled",
		"event", "election_cancelled",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
	)
	return s.loadElection(ctx, id)
}

func (s *electionService) ChangeElectionSecureMode(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if election.IsSecure() {
		return election, nil
	}
	if election.IsCancelled {
		return nil, domain.ErrElectionCancelled
	}

	now := s.now()
	resultStarted := election.StartResult != nil && !now.Before(*election.StartResult)
	destroy := resultStarted && holdsKeys(election)
	err = s.runSaga(ctx, s.keysStep("change election secure mode", election.ID, destroy,
		func(ctx context.Context, destroyed *ports.KeysDestroyInfo) error {
			return s.deps.Elections.MakeElectionSecureMode(ctx, election.ID, election.Version, destroyed)
		},
	))
	if err != nil {
		return nil, err
	}

	s.logger.Info("election switched to secure mode",
		"event", "election_secure_mode_enabled",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
		"keys_destroyed", destroy,
	)
	return s.loadElection(ctx, id)
}

func (s *electionService) SyncElectionKeys(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	switch election.KeysStatus {
	case domain.KeysStatusCreated:
		return election, nil
	case domain.KeysStatusDestroyed:
		return nil, domain.ErrKeysDestroyed
	}

	keys, err := s.deps.Keys.GetKeys(ctx, election.ID)
	if err != nil {
		return nil, s.upstreamError("get keys", election.ID, err)
	}
	if keys == nil || keys.PublicEncrypt == "" || keys.PublicSigning == "" {
		return nil, domain.ErrKeysNotReady
	}
	return s.UpdateElectionKeys(ctx, id, ports.UpdateElectionKeysInput{
		Status:              domain.KeysStatusCreated,
		EncryptionPublicKey: keys.PublicEncrypt,
		SigningPublicKey:    keys.PublicSigning,
	})
}

// UpdateElectionKeys records key material reported by the key service.
func (s *electionService) UpdateElectionKeys(ctx context.Context, id uuid.UUID, input ports.UpdateElectionKeysInput) (*domain.Election, error) {
	if input.Status != domain.KeysStatusCreated {
		return nil, domain.NewError(domain.CodeValidation, "keys status must be CREATED")
	}
	if strings.TrimSpace(input.EncryptionPublicKey) == "" || strings.TrimSpace(input.SigningPublicKey) == "" {
		return nil, domain.NewError(domain.CodeValidation, "encryption and signing public keys are required")
	}

	election, err := s.loadElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if election.KeysStatus == domain.KeysStatusDestroyed {
		return nil, domain.ErrKeysDestroyed
	}

	err = s.deps.Elections.UpdateElectionKeys(ctx, election.ID, election.Version, ports.KeysUpdate{
		Status:              input.Status,
		EncryptionPublicKey: strings.TrimSpace(input.EncryptionPublicKey),
		SigningPublicKey:    strings.TrimSpace(input.SigningPublicKey),
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("election keys created",
		"event", "election_keys_created",
		"module", logModule,
		"layer", "application",
		"election_id", election.ID.String(),
	)
	return s.loadElection(ctx, id)
}

func checkIsDraft(e *domain.Election) error {
	if e.IsPublished() {
		return domain.ErrElectionAlreadyPublished
	}
	if e.IsCancelled {
		return domain.ErrElectionCancelled
	}
	return nil
}

// checkIsPublishable runs every local publish check so that an invalid
// request never reaches the key service.
func checkIsPublishable(e *domain.Election, now time.Time) error {
	if err := checkIsDraft(e); err != nil {
		return err
	}
	if e.Type != domain.ElectionTypeOnline {
		if strings.TrimSpace(e.Location) == "" || strings.TrimSpace(e.LocationMapURL) == "" {
			return domain.NewError(domain.CodeValidation, "location and location map are required to publish")
		}
	}
	if e.Type != domain.ElectionTypeOnsite && e.KeysStatus != domain.KeysStatusCreated {
		return domain.ErrKeysNotReady
	}
	if e.Type == domain.ElectionTypeHybrid {
		if e.OpenRegister == nil || e.CloseRegister == nil {
			return domain.NewError(domain.CodeValidation, "register period is required for hybrid elections")
		}
		if !e.OpenRegister.After(now) || !e.CloseRegister.After(now) {
			return domain.NewError(domain.CodeValidation, "register period must be in the future")
		}
		if !e.CloseRegister.After(*e.OpenRegister) {
			return domain.NewError(domain.CodeValidation, "close register must be after open register")
		}
		if !e.OpenVoting.After(*e.CloseRegister) {
			return domain.NewError(domain.CodeValidation, "open voting must be after close register")
		}
	}
	if !e.OpenVoting.After(now) {
		return domain.NewError(domain.CodeValidation, "open voting must be in the future")
	}
	if !e.CloseVoting.After(e.OpenVoting) {
		return domain.NewError(domain.CodeValidation, "close voting must be after open voting")
	}
	return nil
}
