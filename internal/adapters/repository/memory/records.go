package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

func (s *Store) ListCandidates(_ context.Context, electionID uuid.UUID) ([]domain.ElectionCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ElectionCandidate
	for _, c := range s.candidates {
		if c.ElectionID == electionID {
			out = append(out, cloneCandidate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) GetCandidate(_ context.Context, electionID, candidateID uuid.UUID) (*domain.ElectionCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok || c.ElectionID != electionID {
		return nil, domain.ErrCandidateNotFound
	}
	out := cloneCandidate(c)
	return &out, nil
}

func (s *Store) CreateCandidate(_ context.Context, candidate *domain.ElectionCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCandidateUniqueLocked(*candidate); err != nil {
		return err
	}
	s.candidates[candidate.ID] = cloneCandidate(*candidate)
	return nil
}

func (s *Store) UpdateCandidate(_ context.Context, candidate *domain.ElectionCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.candidates[candidate.ID]
	if !ok || current.ElectionID != candidate.ElectionID {
		return domain.ErrCandidateNotFound
	}
	if err := s.checkCandidateUniqueLocked(*candidate); err != nil {
		return err
	}
	updated := cloneCandidate(*candidate)
	updated.VoteOnline = current.VoteOnline
	updated.VoteOnsite = current.VoteOnsite
	s.candidates[candidate.ID] = updated
	return nil
}

func (s *Store) DeleteCandidate(_ context.Context, electionID, candidateID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateID]
	if !ok || c.ElectionID != electionID {
		return domain.ErrCandidateNotFound
	}
	delete(s.candidates, candidateID)
	return nil
}

func (s *Store) checkCandidateUniqueLocked(candidate domain.ElectionCandidate) error {
	for _, c := range s.candidates {
		if c.ElectionID != candidate.ElectionID || c.ID == candidate.ID {
			continue
		}
		if c.Number == candidate.Number {
			return domain.ErrCandidateNumberTaken
		}
		if strings.EqualFold(c.Name, candidate.Name) {
			return domain.ErrCandidateNameTaken
		}
	}
	return nil
}

func (s *Store) ListEligibleVoters(_ context.Context, electionID uuid.UUID, filter domain.EligibleVoterFilter, pagination domain.Pagination) ([]domain.EligibleVoter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []domain.EligibleVoter
	for key, v := range s.voters {
		if key.electionID != electionID {
			continue
		}
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		matched = append(matched, v)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].UserID.String() < matched[j].UserID.String()
	})

	pagination = pagination.Normalize()
	offset := pagination.Offset()
	if offset >= len(matched) {
		return []domain.EligibleVoter{}, nil
	}
	end := offset + pagination.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *Store) GetEligibleVoter(_ context.Context, electionID, userID uuid.UUID) (*domain.EligibleVoter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voters[voterKey{electionID: electionID, userID: userID}]
	if !ok {
		return nil, domain.ErrEligibleVoterNotFound
	}
	return &v, nil
}

func (s *Store) FilterExistingEligibleVoters(_ context.Context, electionID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for _, id := range userIDs {
		if _, ok := s.voters[voterKey{electionID: electionID, userID: id}]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) BulkCreateEligibleVoters(_ context.Context, voters []domain.EligibleVoter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[voterKey]struct{}, len(voters))
	for _, v := range voters {
		key := voterKey{electionID: v.ElectionID, userID: v.UserID}
		if _, ok := s.voters[key]; ok {
			return domain.ErrEligibleVoterExists
		}
		if _, ok := seen[key]; ok {
			return domain.ErrEligibleVoterExists
		}
		seen[key] = struct{}{}
	}
	for _, v := range voters {
		s.voters[voterKey{electionID: v.ElectionID, userID: v.UserID}] = v
	}
	return nil
}

func (s *Store) BulkDeleteEligibleVoters(_ context.Context, electionID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range userIDs {
		key := voterKey{electionID: electionID, userID: id}
		if _, ok := s.voters[key]; ok {
			delete(s.voters, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) CountElectionEligibleVoters(_ context.Context, electionID uuid.UUID, voterType domain.EligibleVoterType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for key, v := range s.voters {
		if key.electionID == electionID && v.Type == voterType {
			count++
		}
	}
	return count, nil
}

func (s *Store) FilterExistUserIDs(_ context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for _, id := range userIDs {
		if _, ok := s.users[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) ListUserIDsFromPhoneNumbers(_ context.Context, phoneNumbers []string) (map[string]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(phoneNumbers))
	for _, p := range phoneNumbers {
		wanted[p] = struct{}{}
	}
	out := make(map[string]uuid.UUID, len(phoneNumbers))
	for _, u := range s.users {
		if _, ok := wanted[u.PhoneNumber]; ok {
			out[u.PhoneNumber] = u.ID
		}
	}
	return out, nil
}

func (s *Store) SaveBallot(_ context.Context, ballot *domain.ElectionBallot, record *domain.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := voterKey{electionID: record.ElectionID, userID: record.UserID}
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyVoted
	}
	s.ballots[ballot.ID] = *ballot
	rec := *record
	if record.BallotID != nil {
		id := *record.BallotID
		rec.BallotID = &id
	}
	s.records[key] = rec
	return nil
}

func (s *Store) HasVoted(_ context.Context, electionID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[voterKey{electionID: electionID, userID: userID}]
	return ok, nil
}

func (s *Store) ListElectionBallots(_ context.Context, electionID uuid.UUID) ([]domain.ElectionBallot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ElectionBallot
	for _, b := range s.ballots {
		if b.ElectionID == electionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) UnlinkVoteRecordsToBallots(_ context.Context, electionID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var unlinked int64
	for key, rec := range s.records {
		if key.electionID != electionID || rec.BallotID == nil {
			continue
		}
		rec.BallotID = nil
		s.records[key] = rec
		unlinked++
	}
	return unlinked, nil
}

// VoteRecord exposes a stored vote record; tests use it to observe unlinking.
func (s *Store) VoteRecord(electionID, userID uuid.UUID) (domain.VoteRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[voterKey{electionID: electionID, userID: userID}]
	return rec, ok
}

func cloneCandidate(c domain.ElectionCandidate) domain.ElectionCandidate {
	if c.VoteOnline != nil {
		v := *c.VoteOnline
		c.VoteOnline = &v
	}
	if c.VoteOnsite != nil {
		v := *c.VoteOnsite
		c.VoteOnsite = &v
	}
	return c
}
