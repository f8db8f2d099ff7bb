// Package memory is an in-process implementation of every election
// repository port. It backs the service tests and the server when no
// database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type voterKey struct {
	electionID uuid.UUID
	userID     uuid.UUID
}

type Store struct {
	mu sync.RWMutex

	elections  map[uuid.UUID]domain.Election
	candidates map[uuid.UUID]domain.ElectionCandidate
	voters     map[voterKey]domain.EligibleVoter
	users      map[uuid.UUID]domain.User
	ballots    map[uuid.UUID]domain.ElectionBallot
	records    map[voterKey]domain.VoteRecord
}

var (
	_ ports.ElectionRepository      = (*Store)(nil)
	_ ports.CandidateRepository     = (*Store)(nil)
	_ ports.EligibleVoterRepository = (*Store)(nil)
	_ ports.UserRepository          = (*Store)(nil)
	_ ports.BallotRepository        = (*Store)(nil)
)

func NewStore(seed []domain.User) *Store {
	users := make(map[uuid.UUID]domain.User, len(seed))
	for _, u := range seed {
		users[u.ID] = u
	}
	return &Store{
		elections:  make(map[uuid.UUID]domain.Election),
		candidates: make(map[uuid.UUID]domain.ElectionCandidate),
		voters:     make(map[voterKey]domain.EligibleVoter),
		users:      users,
		ballots:    make(map[uuid.UUID]domain.ElectionBallot),
		records:    make(map[voterKey]domain.VoteRecord),
	}
}

func (s *Store) SetUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.PhoneNumber = strings.TrimSpace(user.PhoneNumber)
	s.users[user.ID] = user
}

func (s *Store) CreateElection(_ context.Context, election *domain.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	election.Version = 1
	s.elections[election.ID] = cloneElection(*election)
	return nil
}

func (s *Store) GetElectionByID(_ context.Context, id uuid.UUID) (*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	out := cloneElection(e)
	return &out, nil
}

func (s *Store) UpdateElection(_ context.Context, election *domain.Election) error {
	return s.mutate(election.ID, election.Version, func(e *domain.Election) {
		e.Name = election.Name
		e.Description = election.Description
		e.Location = election.Location
		e.LocationMapURL = election.LocationMapURL
		e.Province = election.Province
		e.District = election.District
		e.OpenRegister = copyTime(election.OpenRegister)
		e.CloseRegister = copyTime(election.CloseRegister)
		e.OpenVoting = election.OpenVoting
		e.CloseVoting = election.CloseVoting
		election.Version = e.Version + 1
	})
}

func (s *Store) DeleteElection(_ context.Context, id uuid.UUID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(id, version); err != nil {
		return err
	}
	delete(s.elections, id)
	for cid, c := range s.candidates {
		if c.ElectionID == id {
			delete(s.candidates, cid)
		}
	}
	for key := range s.voters {
		if key.electionID == id {
			delete(s.voters, key)
		}
	}
	return nil
}

func (s *Store) ListElections(_ context.Context, filter domain.ElectionFilter, pagination domain.Pagination) ([]*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]domain.Election, 0, len(s.elections))
	for _, e := range s.elections {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Cancelled != nil && e.IsCancelled != *filter.Cancelled {
			continue
		}
		if filter.Published != nil && e.IsPublished() != *filter.Published {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	pagination = pagination.Normalize()
	return pageElections(matched, pagination.Offset(), pagination.Limit), nil
}

func (s *Store) ListElectionsAwaitingCount(_ context.Context, now time.Time) ([]*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Election
	for _, e := range s.elections {
		if !e.Type.HasOnlineChannel() || e.IsCancelled || !e.IsPublished() || e.StartResult != nil {
			continue
		}
		if now.Before(e.CloseVoting) {
			continue
		}
		if e.KeysStatus != domain.KeysStatusCreated || e.OnlineResultStatus != domain.OnlineResultStatusUnset {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CloseVoting.Before(matched[j].CloseVoting)
	})
	return pageElections(matched, 0, len(matched)), nil
}

func (s *Store) UpdateElectionKeys(_ context.Context, id uuid.UUID, version int64, update ports.KeysUpdate) error {
	return s.mutate(id, version, func(e *domain.Election) {
		e.KeysStatus = update.Status
		e.EncryptionPublicKey = update.EncryptionPublicKey
		e.SigningPublicKey = update.SigningPublicKey
	})
}

func (s *Store) CancelElectionByID(_ context.Context, id uuid.UUID, version int64, destroyed *ports.KeysDestroyInfo) error {
	return s.mutate(id, version, func(e *domain.Election) {
		e.IsCancelled = true
		applyDestroyed(e, destroyed)
	})
}

func (s *Store) PublishElectionByID(_ context.Context, id uuid.UUID, version int64, publishDate time.Time, destroyed *ports.KeysDestroyInfo) error {
	return s.mutate(id, version, func(e *domain.Election) {
		e.PublishDate = &publishDate
		applyDestroyed(e, destroyed)
	})
}

func (s *Store) MakeElectionSecureMode(_ context.Context, id uuid.UUID, version int64, destroyed *ports.KeysDestroyInfo) error {
	return s.mutate(id, version, func(e *domain.Election) {
		e.Mode = domain.ElectionModeSecure
		applyDestroyed(e, destroyed)
	})
}

func (s *Store) AnnounceElectionResult(_ context.Context, id uuid.UUID, version int64, start, end time.Time, destroyed *ports.KeysDestroyInfo) error {
	return s.mutate(id, version, func(e *domain.Election) {
		e.StartResult = &start
		e.EndResult = &end
		applyDestroyed(e, destroyed)
	})
}

func (s *Store) UpdateElectionOnsiteResult(_ context.Context, id uuid.UUID, version int64, votes []domain.CandidateVotes) error {
	return s.updateResult(id, version, votes, func(e *domain.Election) {}, func(c *domain.ElectionCandidate, v *int64) {
		c.VoteOnsite = v
	})
}

func (s *Store) UpdateElectionOnlineResult(_ context.Context, id uuid.UUID, version int64, status domain.OnlineResultStatus, votes []domain.CandidateVotes) error {
	return s.updateResult(id, version, votes, func(e *domain.Election) {
		e.OnlineResultStatus = status
	}, func(c *domain.ElectionCandidate, v *int64) {
		c.VoteOnline = v
	})
}

// updateResult applies the election change and the candidate votes together
// or not at all. A nil votes slice clears the channel.
func (s *Store) updateResult(id uuid.UUID, version int64, votes []domain.CandidateVotes, apply func(*domain.Election), set func(*domain.ElectionCandidate, *int64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(id, version); err != nil {
		return err
	}
	for _, v := range votes {
		if c, ok := s.candidates[v.CandidateID]; !ok || c.ElectionID != id {
			return domain.ErrCandidateNotFound
		}
	}

	now := time.Now().UTC()
	if votes == nil {
		for cid, c := range s.candidates {
			if c.ElectionID == id {
				set(&c, nil)
				c.UpdatedAt = now
				s.candidates[cid] = c
			}
		}
	}
	for _, v := range votes {
		c := s.candidates[v.CandidateID]
		n := v.Votes
		set(&c, &n)
		c.UpdatedAt = now
		s.candidates[v.CandidateID] = c
	}

	e := s.elections[id]
	apply(&e)
	e.Version++
	e.UpdatedAt = now
	s.elections[id] = e
	return nil
}

func (s *Store) mutate(id uuid.UUID, version int64, apply func(*domain.Election)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(id, version); err != nil {
		return err
	}
	e := s.elections[id]
	apply(&e)
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	s.elections[id] = e
	return nil
}

func (s *Store) checkVersionLocked(id uuid.UUID, version int64) error {
	e, ok := s.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}
	if e.Version != version {
		return domain.ErrElectionVersionConflict
	}
	return nil
}

func applyDestroyed(e *domain.Election, destroyed *ports.KeysDestroyInfo) {
	if destroyed == nil {
		return
	}
	at := destroyed.At
	d := destroyed.Duration
	e.KeysStatus = domain.KeysStatusDestroyed
	e.KeysDestroyScheduledAt = &at
	e.KeysDestroyScheduledDuration = &d
}

func pageElections(elections []domain.Election, offset, limit int) []*domain.Election {
	if offset >= len(elections) {
		return []*domain.Election{}
	}
	end := offset + limit
	if end > len(elections) {
		end = len(elections)
	}
	out := make([]*domain.Election, 0, end-offset)
	for _, e := range elections[offset:end] {
		c := cloneElection(e)
		out = append(out, &c)
	}
	return out
}

func cloneElection(e domain.Election) domain.Election {
	e.PublishDate = copyTime(e.PublishDate)
	e.OpenRegister = copyTime(e.OpenRegister)
	e.CloseRegister = copyTime(e.CloseRegister)
	e.StartResult = copyTime(e.StartResult)
	e.EndResult = copyTime(e.EndResult)
	e.KeysDestroyScheduledAt = copyTime(e.KeysDestroyScheduledAt)
	if e.KeysDestroyScheduledDuration != nil {
		d := *e.KeysDestroyScheduledDuration
		e.KeysDestroyScheduledDuration = &d
	}
	return e
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
