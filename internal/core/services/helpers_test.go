package services_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
	"github.com/vncsmyrnk/elections/internal/core/services"
)

var baseTime = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

var phoneSeq atomic.Int64

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeKeyService records every call and signs tallies with a real P-256 key.
type fakeKeyService struct {
	mu    sync.Mutex
	calls []string

	signer        *ecdsa.PrivateKey
	publicSigning string

	createErr  error
	getErr     error
	destroyErr error
	restoreErr error
	countErr   error
	noKeys     bool
	tally      func(electionID uuid.UUID, ballots []domain.ElectionBallot) ports.BallotTally
}

func newFakeKeyService(t *testing.T) *fakeKeyService {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return &fakeKeyService{
		signer:        key,
		publicSigning: base64.StdEncoding.EncodeToString(der),
	}
}

func (k *fakeKeyService) record(op string, id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, fmt.Sprintf("%s:%s", op, id))
}

func (k *fakeKeyService) count(op string, id uuid.UUID) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	want := fmt.Sprintf("%s:%s", op, id)
	n := 0
	for _, c := range k.calls {
		if c == want {
			n++
		}
	}
	return n
}

func (k *fakeKeyService) keys() ports.ElectionKeys {
	return ports.ElectionKeys{PublicEncrypt: "encrypt-public-key", PublicSigning: k.publicSigning}
}

func (k *fakeKeyService) CreateKeys(_ context.Context, id uuid.UUID) (ports.ElectionKeys, error) {
	k.record("create", id)
	if k.createErr != nil {
		return ports.ElectionKeys{}, k.createErr
	}
	return k.keys(), nil
}

func (k *fakeKeyService) GetKeys(_ context.Context, id uuid.UUID) (*ports.ElectionKeys, error) {
	k.record("get", id)
	if k.getErr != nil {
		return nil, k.getErr
	}
	if k.noKeys {
		return nil, nil
	}
	keys := k.keys()
	return &keys, nil
}

func (k *fakeKeyService) DestroyKeys(_ context.Context, id uuid.UUID) (ports.KeysDestroyResult, error) {
	k.record("destroy", id)
	if k.destroyErr != nil {
		return ports.KeysDestroyResult{}, k.destroyErr
	}
	return ports.KeysDestroyResult{DestroyScheduledDuration: 7 * day}, nil
}

func (k *fakeKeyService) RestoreKeys(_ context.Context, id uuid.UUID) error {
	k.record("restore", id)
	return k.restoreErr
}

func (k *fakeKeyService) CountBallots(_ context.Context, id uuid.UUID, ballots []domain.ElectionBallot) (ports.BallotTally, error) {
	k.record("count", id)
	if k.countErr != nil {
		return ports.BallotTally{}, k.countErr
	}
	if k.tally == nil {
		return ports.BallotTally{}, nil
	}
	return k.tally(id, ballots), nil
}

func (k *fakeKeyService) sign(t *testing.T, electionID uuid.UUID, votes []domain.CandidateVotes) string {
	t.Helper()
	payload, err := domain.CanonicalResultPayload(electionID, votes)
	require.NoError(t, err)
	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, k.signer, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

// flakyElections fails selected election writes after the key service step
// has run, to drive the compensation path.
type flakyElections struct {
	*memory.Store
	failCreate   error
	failDelete   error
	failCancel   error
	failPublish  error
	failSecure   error
	failAnnounce error
}

func (f *flakyElections) CreateElection(ctx context.Context, e *domain.Election) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	return f.Store.CreateElection(ctx, e)
}

func (f *flakyElections) DeleteElection(ctx context.Context, id uuid.UUID, version int64) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.Store.DeleteElection(ctx, id, version)
}

func (f *flakyElections) CancelElectionByID(ctx context.Context, id uuid.UUID, version int64, d *ports.KeysDestroyInfo) error {
	if f.failCancel != nil {
		return f.failCancel
	}
	return f.Store.CancelElectionByID(ctx, id, version, d)
}

func (f *flakyElections) PublishElectionByID(ctx context.Context, id uuid.UUID, version int64, at time.Time, d *ports.KeysDestroyInfo) error {
	if f.failPublish != nil {
		return f.failPublish
	}
	return f.Store.PublishElectionByID(ctx, id, version, at, d)
}

func (f *flakyElections) MakeElectionSecureMode(ctx context.Context, id uuid.UUID, version int64, d *ports.KeysDestroyInfo) error {
	if f.failSecure != nil {
		return f.failSecure
	}
	return f.Store.MakeElectionSecureMode(ctx, id, version, d)
}

func (f *flakyElections) AnnounceElectionResult(ctx context.Context, id uuid.UUID, version int64, start, end time.Time, d *ports.KeysDestroyInfo) error {
	if f.failAnnounce != nil {
		return f.failAnnounce
	}
	return f.Store.AnnounceElectionResult(ctx, id, version, start, end, d)
}

type testEnv struct {
	ctx       context.Context
	store     *memory.Store
	elections *flakyElections
	keys      *fakeKeyService
	clock     *fakeClock

	electionSvc  ports.ElectionService
	candidateSvc ports.CandidateService
	voterSvc     ports.EligibleVoterService
	ballotSvc    ports.BallotService
	resultSvc    ports.ResultService
	tallySvc     ports.TallyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore(nil)
	env := &testEnv{
		ctx:       context.Background(),
		store:     store,
		elections: &flakyElections{Store: store},
		keys:      newFakeKeyService(t),
		clock:     &fakeClock{now: baseTime},
	}
	deps := services.Dependencies{
		Elections:      env.elections,
		Candidates:     store,
		EligibleVoters: store,
		Users:          store,
		Ballots:        store,
		Keys:           env.keys,
		Clock:          env.clock,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.electionSvc = services.NewElectionService(deps)
	env.candidateSvc = services.NewCandidateService(deps)
	env.voterSvc = services.NewEligibleVoterService(deps)
	env.ballotSvc = services.NewBallotService(deps)
	env.resultSvc = services.NewResultService(deps)
	env.tallySvc = services.NewTallyService(deps, env.resultSvc)
	return env
}

func at(d time.Duration) time.Time {
	return baseTime.Add(d)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// detailsFor builds details on the standard timeline: register T+1d..T+3d,
// voting T+4d..T+5d.
func detailsFor(typ domain.ElectionType) domain.ElectionDetails {
	d := domain.ElectionDetails{
		Name:           fmt.Sprintf("%s election", typ),
		Description:    "board election",
		Location:       "Town hall",
		LocationMapURL: "https://maps.example.com/town-hall",
		Province:       "North",
		District:       "Central",
		OpenVoting:     at(4 * day),
		CloseVoting:    at(5 * day),
	}
	if typ == domain.ElectionTypeHybrid {
		d.OpenRegister = timePtr(at(1 * day))
		d.CloseRegister = timePtr(at(3 * day))
	}
	return d
}

func (e *testEnv) createElection(t *testing.T, typ domain.ElectionType, mode domain.ElectionMode) *domain.Election {
	t.Helper()
	election, err := e.electionSvc.CreateElection(e.ctx, ports.CreateElectionInput{
		Type:    typ,
		Mode:    mode,
		Details: detailsFor(typ),
	})
	require.NoError(t, err)
	return election
}

// readyElection creates an election with confirmed keys and n candidates.
func (e *testEnv) readyElection(t *testing.T, typ domain.ElectionType, mode domain.ElectionMode, n int) (*domain.Election, []domain.ElectionCandidate) {
	t.Helper()
	election := e.createElection(t, typ, mode)
	var err error
	if typ != domain.ElectionTypeOnsite {
		election, err = e.electionSvc.SyncElectionKeys(e.ctx, election.ID)
		require.NoError(t, err)
	}
	candidates := make([]domain.ElectionCandidate, 0, n)
	for i := 1; i <= n; i++ {
		c, err := e.candidateSvc.CreateCandidate(e.ctx, election.ID, ports.CandidateInput{
			Name:   fmt.Sprintf("Candidate %d", i),
			Number: i,
		})
		require.NoError(t, err)
		candidates = append(candidates, *c)
	}
	return election, candidates
}

func (e *testEnv) publish(t *testing.T, id uuid.UUID) *domain.Election {
	t.Helper()
	election, err := e.electionSvc.PublishElection(e.ctx, id, time.Time{})
	require.NoError(t, err)
	return election
}

func (e *testEnv) addUsers(t *testing.T, n int) []domain.User {
	t.Helper()
	users := make([]domain.User, 0, n)
	for i := 0; i < n; i++ {
		u := domain.User{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("Voter %d", i),
			PhoneNumber: fmt.Sprintf("+1555%07d", phoneSeq.Add(1)),
			CreatedAt:   baseTime,
		}
		e.store.SetUser(u)
		users = append(users, u)
	}
	return users
}

func (e *testEnv) enroll(t *testing.T, electionID uuid.UUID, voterType domain.EligibleVoterType, users []domain.User) {
	t.Helper()
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	_, err := e.voterSvc.BulkCreateElectionEligibleVoters(e.ctx, electionID, ports.EligibleVotersInput{
		Identifier: domain.VoterIdentifierUserID,
		UserIDs:    ids,
		Type:       voterType,
	})
	require.NoError(t, err)
}

func votesFor(candidates []domain.ElectionCandidate, counts ...int64) []domain.CandidateVotes {
	votes := make([]domain.CandidateVotes, len(candidates))
	for i, c := range candidates {
		votes[i] = domain.CandidateVotes{CandidateID: c.ID, Votes: counts[i]}
	}
	return votes
}

func requireCode(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.CodeOf(err), "unexpected error: %v", err)
}
