package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}
	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	ctx := context.Background()

	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, applyMigrations(db))
	return db
}

var epoch = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

func newElection(typ domain.ElectionType) *domain.Election {
	e := &domain.Election{
		ID:                 uuid.New(),
		Name:               fmt.Sprintf("%s election", typ),
		Type:               typ,
		Mode:               domain.ElectionModeNormal,
		OpenVoting:         epoch.Add(96 * time.Hour),
		CloseVoting:        epoch.Add(120 * time.Hour),
		KeysStatus:         domain.KeysStatusPendingCreated,
		OnlineResultStatus: domain.OnlineResultStatusUnset,
		CreatedAt:          epoch,
		UpdatedAt:          epoch,
	}
	if typ == domain.ElectionTypeHybrid {
		open, closing := epoch.Add(24*time.Hour), epoch.Add(72*time.Hour)
		e.OpenRegister, e.CloseRegister = &open, &closing
	}
	return e
}

func TestPostgresRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	elections := NewElectionRepository(db)
	candidates := NewCandidateRepository(db)
	voters := NewEligibleVoterRepository(db)
	users := NewUserRepository(db)
	ballots := NewBallotRepository(db)

	createCandidates := func(t *testing.T, electionID uuid.UUID, n int) []domain.ElectionCandidate {
		out := make([]domain.ElectionCandidate, 0, n)
		for i := 1; i <= n; i++ {
			c := domain.ElectionCandidate{
				ID:         uuid.New(),
				ElectionID: electionID,
				Name:       fmt.Sprintf("Candidate %d", i),
				Number:     i,
				CreatedAt:  epoch,
				UpdatedAt:  epoch,
			}
			require.NoError(t, candidates.CreateCandidate(ctx, &c))
			out = append(out, c)
		}
		return out
	}
	createUsers := func(t *testing.T, n int) []domain.User {
		out := make([]domain.User, 0, n)
		for i := 0; i < n; i++ {
			u := domain.User{Name: "Voter", PhoneNumber: fmt.Sprintf("+1555%s", uuid.NewString()[:8])}
			require.NoError(t, users.Create(ctx, &u))
			out = append(out, u)
		}
		return out
	}

	t.Run("election versioning", func(t *testing.T) {
		e := newElection(domain.ElectionTypeHybrid)
		require.NoError(t, elections.CreateElection(ctx, e))
		assert.Equal(t, int64(1), e.Version)

		stored, err := elections.GetElectionByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Name, stored.Name)
		require.NotNil(t, stored.OpenRegister)
		assert.True(t, e.OpenRegister.Equal(*stored.OpenRegister))

		stored.Name = "Renamed"
		require.NoError(t, elections.UpdateElection(ctx, stored))
		assert.Equal(t, int64(2), stored.Version)

		err = elections.PublishElectionByID(ctx, e.ID, 1, epoch, nil)
		assert.ErrorIs(t, err, domain.ErrElectionVersionConflict)

		err = elections.PublishElectionByID(ctx, uuid.New(), 1, epoch, nil)
		assert.ErrorIs(t, err, domain.ErrElectionNotFound)

		_, err = elections.GetElectionByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrElectionNotFound)
	})

	t.Run("keys lifecycle", func(t *testing.T) {
		e := newElection(domain.ElectionTypeOnline)
		require.NoError(t, elections.CreateElection(ctx, e))

		require.NoError(t, elections.UpdateElectionKeys(ctx, e.ID, 1, ports.KeysUpdate{
			Status:              domain.KeysStatusCreated,
			EncryptionPublicKey: "enc",
			SigningPublicKey:    "sig",
		}))
		require.NoError(t, elections.PublishElectionByID(ctx, e.ID, 2, epoch, nil))
		require.NoError(t, elections.CancelElectionByID(ctx, e.ID, 3, &ports.KeysDestroyInfo{At: epoch, Duration: 36 * time.Hour}))

		stored, err := elections.GetElectionByID(ctx, e.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCancelled)
		assert.True(t, stored.IsPublished())
		assert.Equal(t, domain.KeysStatusDestroyed, stored.KeysStatus)
		require.NotNil(t, stored.KeysDestroyScheduledDuration)
		assert.Equal(t, 36*time.Hour, *stored.KeysDestroyScheduledDuration)
		assert.Equal(t, "sig", stored.SigningPublicKey)
		assert.Equal(t, int64(4), stored.Version)
	})

	t.Run("awaiting count", func(t *testing.T) {
		ready := newElection(domain.ElectionTypeOnline)
		draft := newElection(domain.ElectionTypeOnline)
		onsite := newElection(domain.ElectionTypeOnsite)
		for _, e := range []*domain.Election{ready, draft, onsite} {
			require.NoError(t, elections.CreateElection(ctx, e))
		}
		require.NoError(t, elections.UpdateElectionKeys(ctx, ready.ID, 1, ports.KeysUpdate{Status: domain.KeysStatusCreated, EncryptionPublicKey: "e", SigningPublicKey: "s"}))
		require.NoError(t, elections.PublishElectionByID(ctx, ready.ID, 2, epoch, nil))
		require.NoError(t, elections.PublishElectionByID(ctx, onsite.ID, 1, epoch, nil))

		pending, err := elections.ListElectionsAwaitingCount(ctx, epoch.Add(200*time.Hour))
		require.NoError(t, err)
		var ids []uuid.UUID
		for _, e := range pending {
			ids = append(ids, e.ID)
		}
		assert.Contains(t, ids, ready.ID)
		assert.NotContains(t, ids, draft.ID)
		assert.NotContains(t, ids, onsite.ID)

		early, err := elections.ListElectionsAwaitingCount(ctx, epoch)
		require.NoError(t, err)
		for _, e := range early {
			assert.NotEqual(t, ready.ID, e.ID)
		}
	})

	t.Run("list filters", func(t *testing.T) {
		e := newElection(domain.ElectionTypeOnsite)
		e.Name = "Harbour district council"
		require.NoError(t, elections.CreateElection(ctx, e))

		found, err := elections.ListElections(ctx, domain.ElectionFilter{Query: "harbour"}, domain.Pagination{}.Normalize())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, e.ID, found[0].ID)

		published := true
		found, err = elections.ListElections(ctx, domain.ElectionFilter{Query: "harbour", Published: &published}, domain.Pagination{}.Normalize())
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("candidates are unique per election", func(t *testing.T) {
		e := newElection(domain.ElectionTypeOnline)
		require.NoError(t, elections.CreateElection(ctx, e))
		created := createCandidates(t, e.ID, 2)

		dupNumber := domain.ElectionCandidate{ID: uuid.New(), ElectionID: e.ID, Name: "Other", Number: 1}
		assert.ErrorIs(t, candidates.CreateCandidate(ctx, &dupNumber), domain.ErrCandidateNumberTaken)

		dupName := domain.ElectionCandidate{ID: uuid.New(), ElectionID: e.ID, Name: "CANDIDATE 1", Number: 9}
		assert.ErrorIs(t, candidates.CreateCandidate(ctx, &dupName), domain.ErrCandidateNameTaken)

		other := newElection(domain.ElectionTypeOnline)
		require.NoError(t, elections.CreateElection(ctx, other))
		createCandidates(t, other.ID, 1)

		assert.ErrorIs(t, candidates.DeleteCandidate(ctx, other.ID, created[0].ID), domain.ErrCandidateNotFound)
		require.NoError(t, candidates.DeleteCandidate(ctx, e.ID, created[1].ID))
		list, err := candidates.ListCandidates(ctx, e.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("result updates are atomic", func(t *testing.T) {
		e := newElection(domain.ElectionTypeHybrid)
		require.NoError(t, elections.CreateElection(ctx, e))
		created := createCandidates(t, e.ID, 2)

		bad := []domain.CandidateVotes{
			{CandidateID: created[0].ID, Votes: 5},
			{CandidateID: uuid.New(), Votes: 1},
		}
		err := elections.UpdateElectionOnsiteResult(ctx, e.ID, 1, bad)
		assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
		list, err := candidates.ListCandidates(ctx, e.ID)
		require.NoError(t, err)
		for _, c := range list {
			assert.Nil(t, c.VoteOnsite)
		}

		good := []domain.CandidateVotes{{CandidateID: created[0].ID, Votes: 5}, {CandidateID: created[1].ID, Votes: 3}}
		require.NoError(t, elections.UpdateElectionOnsiteResult(ctx, e.ID, 1, good))
		require.NoError(t, elections.UpdateElectionOnlineResult(ctx, e.ID, 2, domain.OnlineResultStatusCountSuccess, good))
		require.NoError(t, elections.UpdateElectionOnlineResult(ctx, e.ID, 3, domain.OnlineResultStatusCountFailed, nil))

		stored, err := elections.GetElectionByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OnlineResultStatusCountFailed, stored.OnlineResultStatus)
		c, err := candidates.GetCandidate(ctx, e.ID, created[0].ID)
		require.NoError(t, err)
		require.NotNil(t, c.VoteOnsite)
		assert.Equal(t, int64(5), *c.VoteOnsite)
		assert.Nil(t, c.VoteOnline)
	})

	t.Run("eligible voters", func(t *testing.T) {
		e := newElection(domain.ElectionTypeHybrid)
		require.NoError(t, elections.CreateElection(ctx, e))
		people := createUsers(t, 3)

		byPhone, err := users.ListUserIDsFromPhoneNumbers(ctx, []string{people[0].PhoneNumber, "+10000000000"})
		require.NoError(t, err)
		assert.Equal(t, map[string]uuid.UUID{people[0].PhoneNumber: people[0].ID}, byPhone)

		known, err := users.FilterExistUserIDs(ctx, []uuid.UUID{people[1].ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{people[1].ID}, known)

		enrol := []domain.EligibleVoter{
			{ElectionID: e.ID, UserID: people[0].ID, Type: domain.EligibleVoterTypeOnline, CreatedAt: epoch},
			{ElectionID: e.ID, UserID: people[1].ID, Type: domain.EligibleVoterTypeOnsite, CreatedAt: epoch},
		}
		require.NoError(t, voters.BulkCreateEligibleVoters(ctx, enrol))

		again := []domain.EligibleVoter{
			{ElectionID: e.ID, UserID: people[2].ID, Type: domain.EligibleVoterTypeOnline, CreatedAt: epoch},
			{ElectionID: e.ID, UserID: people[0].ID, Type: domain.EligibleVoterTypeOnline, CreatedAt: epoch},
		}
		assert.ErrorIs(t, voters.BulkCreateEligibleVoters(ctx, again), domain.ErrEligibleVoterExists)

		online, err := voters.CountElectionEligibleVoters(ctx, e.ID, domain.EligibleVoterTypeOnline)
		require.NoError(t, err)
		assert.Equal(t, int64(1), online, "failed batch leaves no rows behind")

		listed, err := voters.ListEligibleVoters(ctx, e.ID, domain.EligibleVoterFilter{Type: domain.EligibleVoterTypeOnsite}, domain.Pagination{}.Normalize())
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, people[1].ID, listed[0].UserID)

		existing, err := voters.FilterExistingEligibleVoters(ctx, e.ID, []uuid.UUID{people[0].ID, people[2].ID})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{people[0].ID}, existing)

		_, err = voters.GetEligibleVoter(ctx, e.ID, people[2].ID)
		assert.ErrorIs(t, err, domain.ErrEligibleVoterNotFound)

		deleted, err := voters.BulkDeleteEligibleVoters(ctx, e.ID, []uuid.UUID{people[0].ID, people[1].ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)
	})

	t.Run("ballots", func(t *testing.T) {
		e := newElection(domain.ElectionTypeOnline)
		require.NoError(t, elections.CreateElection(ctx, e))
		voter := createUsers(t, 1)[0]

		ballot := &domain.ElectionBallot{ID: uuid.New(), ElectionID: e.ID, Ballot: "ciphertext", CreatedAt: epoch}
		record := &domain.VoteRecord{ElectionID: e.ID, UserID: voter.ID, BallotID: &ballot.ID, CreatedAt: epoch}
		require.NoError(t, ballots.SaveBallot(ctx, ballot, record))

		second := &domain.ElectionBallot{ID: uuid.New(), ElectionID: e.ID, Ballot: "again", CreatedAt: epoch}
		err := ballots.SaveBallot(ctx, second, &domain.VoteRecord{ElectionID: e.ID, UserID: voter.ID, BallotID: &second.ID, CreatedAt: epoch})
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

		stored, err := ballots.ListElectionBallots(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "ciphertext", stored[0].Ballot)

		unlinked, err := ballots.UnlinkVoteRecordsToBallots(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unlinked)

		var ballotID sql.NullString
		require.NoError(t, db.QueryRow(
			`SELECT ballot_id FROM election_vote_records WHERE election_id = $1 AND user_id = $2`, e.ID, voter.ID,
		).Scan(&ballotID))
		assert.False(t, ballotID.Valid)

		voted, err := ballots.HasVoted(ctx, e.ID, voter.ID)
		require.NoError(t, err)
		assert.True(t, voted)
	})

	t.Run("deleting an election removes its children", func(t *testing.T) {
		e := newElection(domain.ElectionTypeOnline)
		require.NoError(t, elections.CreateElection(ctx, e))
		createCandidates(t, e.ID, 1)

		assert.ErrorIs(t, elections.DeleteElection(ctx, e.ID, 7), domain.ErrElectionVersionConflict)
		require.NoError(t, elections.DeleteElection(ctx, e.ID, 1))

		list, err := candidates.ListCandidates(ctx, e.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
