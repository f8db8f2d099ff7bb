package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type eligibleVoterService struct {
	orchestrator
}

func NewEligibleVoterService(deps Dependencies) ports.EligibleVoterService {
	return &eligibleVoterService{orchestrator: newOrchestrator(deps)}
}

func (s *eligibleVoterService) ListEligibleVoters(ctx context.Context, electionID uuid.UUID, input ports.ListEligibleVotersInput) ([]domain.EligibleVoter, error) {
	if input.Filter.Type != "" && !input.Filter.Type.Valid() {
		return nil, domain.NewError(domain.CodeValidation, "invalid eligible voter type filter")
	}
	if _, err := s.loadElection(ctx, electionID); err != nil {
		return nil, err
	}
	voters, err := s.deps.EligibleVoters.ListEligibleVoters(ctx, electionID, input.Filter, input.Pagination.Normalize())
	if err != nil {
		return nil, storageError(err)
	}
	return voters, nil
}

// BulkCreateElectionEligibleVoters enrols every identified user or none of
// them.
func (s *eligibleVoterService) BulkCreateElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, input ports.EligibleVotersInput) ([]domain.EligibleVoter, error) {
	if !input.Type.Valid() {
		return nil, domain.NewError(domain.CodeValidation, "eligible voter type must be ONLINE or ONSITE")
	}
	election, err := s.loadModifiableElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !input.Type.AllowedFor(election.Type) {
		return nil, domain.NewError(domain.CodeValidation,
			fmt.Sprintf("%s voters cannot enrol in a %s election", input.Type, election.Type))
	}

	userIDs, err := s.resolveUserIDs(ctx, input)
	if err != nil {
		return nil, err
	}
	existing, err := s.deps.EligibleVoters.FilterExistingEligibleVoters(ctx, electionID, userIDs)
	if err != nil {
		return nil, storageError(err)
	}
	if len(existing) > 0 {
		return nil, domain.WrapError(domain.CodeConflict, domain.ErrEligibleVoterExists.Message,
			fmt.Errorf("already enrolled: %s", joinIDs(existing)))
	}

	now := s.now()
	voters := make([]domain.EligibleVoter, 0, len(userIDs))
	for _, id := range userIDs {
		voters = append(voters, domain.EligibleVoter{
			ElectionID: electionID,
			UserID:     id,
			Type:       input.Type,
			CreatedAt:  now,
		})
	}
	if err := s.deps.EligibleVoters.BulkCreateEligibleVoters(ctx, voters); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info("eligible voters created",
		"event", "election_eligible_voters_created",
		"module", logModule,
		"layer", "application",
		"election_id", electionID.String(),
		"identifier", string(input.Identifier),
		"type", string(input.Type),
		"count", len(voters),
	)
	return voters, nil
}

// DeleteElectionEligibleVoters removes every identified enrolment or none of
// them.
func (s *eligibleVoterService) DeleteElectionEligibleVoters(ctx context.Context, electionID uuid.UUID, input ports.EligibleVotersInput) (int64, error) {
	if _, err := s.loadModifiableElection(ctx, electionID); err != nil {
		return 0, err
	}
	userIDs, err := s.resolveUserIDs(ctx, input)
	if err != nil {
		return 0, err
	}
	enrolled, err := s.deps.EligibleVoters.FilterExistingEligibleVoters(ctx, electionID, userIDs)
	if err != nil {
		return 0, storageError(err)
	}
	if missing := missingIDs(userIDs, enrolled); len(missing) > 0 {
		return 0, domain.WrapError(domain.CodeNotFound, domain.ErrEligibleVoterNotFound.Message,
			fmt.Errorf("not enrolled: %s", joinIDs(missing)))
	}

	deleted, err := s.deps.EligibleVoters.BulkDeleteEligibleVoters(ctx, electionID, userIDs)
	if err != nil {
		return 0, storageError(err)
	}

	s.logger.Info("eligible voters deleted",
		"event", "election_eligible_voters_deleted",
		"module", logModule,
		"layer", "application",
		"election_id", electionID.String(),
		"identifier", string(input.Identifier),
		"count", deleted,
	)
	return deleted, nil
}

// resolveUserIDs turns the identifier union into a deduplicated list of
// known user ids. Any unknown user or phone number fails the whole batch.
func (s *eligibleVoterService) resolveUserIDs(ctx context.Context, input ports.EligibleVotersInput) ([]uuid.UUID, error) {
	switch input.Identifier {
	case domain.VoterIdentifierUserID:
		ids := dedupeIDs(input.UserIDs)
		if len(ids) == 0 {
			return nil, domain.NewError(domain.CodeValidation, "user ids are required")
		}
		found, err := s.deps.Users.FilterExistUserIDs(ctx, ids)
		if err != nil {
			return nil, storageError(err)
		}
		if missing := missingIDs(ids, found); len(missing) > 0 {
			return nil, domain.WrapError(domain.CodeNotFound, domain.ErrUserNotFound.Message,
				fmt.Errorf("unknown user ids: %s", joinIDs(missing)))
		}
		return ids, nil

	case domain.VoterIdentifierPhoneNumber:
		phones := dedupePhoneNumbers(input.PhoneNumbers)
		if len(phones) == 0 {
			return nil, domain.NewError(domain.CodeValidation, "phone numbers are required")
		}
		byPhone, err := s.deps.Users.ListUserIDsFromPhoneNumbers(ctx, phones)
		if err != nil {
			return nil, storageError(err)
		}
		var missing []string
		ids := make([]uuid.UUID, 0, len(phones))
		for _, phone := range phones {
			id, ok := byPhone[phone]
			if !ok {
				missing = append(missing, phone)
				continue
			}
			ids = append(ids, id)
		}
		if len(missing) > 0 {
			return nil, domain.WrapError(domain.CodeNotFound, domain.ErrPhoneNumberNotFound.Message,
				fmt.Errorf("unknown phone numbers: %s", strings.Join(missing, ", ")))
		}
		return dedupeIDs(ids), nil
	}
	return nil, domain.NewError(domain.CodeValidation, "identifier must be USER_ID or PHONE_NUMBER")
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func dedupePhoneNumbers(phones []string) []string {
	seen := make(map[string]struct{}, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func missingIDs(want, have []uuid.UUID) []uuid.UUID {
	found := make(map[uuid.UUID]struct{}, len(have))
	for _, id := range have {
		found[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
