package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/vncsmyrnk/elections/internal/adapters/handler/http"
	"github.com/vncsmyrnk/elections/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
	"github.com/vncsmyrnk/elections/internal/core/services"
)

const (
	jwtSecret      = "test-secret"
	internalSecret = "internal-secret"
)

type stubKeys struct{}

func (stubKeys) CreateKeys(context.Context, uuid.UUID) (ports.ElectionKeys, error) {
	return ports.ElectionKeys{PublicEncrypt: "enc", PublicSigning: "c2ln"}, nil
}

func (stubKeys) GetKeys(context.Context, uuid.UUID) (*ports.ElectionKeys, error) {
	return &ports.ElectionKeys{PublicEncrypt: "enc", PublicSigning: "c2ln"}, nil
}

func (stubKeys) DestroyKeys(context.Context, uuid.UUID) (ports.KeysDestroyResult, error) {
	return ports.KeysDestroyResult{DestroyScheduledDuration: time.Hour}, nil
}

func (stubKeys) RestoreKeys(context.Context, uuid.UUID) error {
	return nil
}

func (stubKeys) CountBallots(context.Context, uuid.UUID, []domain.ElectionBallot) (ports.BallotTally, error) {
	return ports.BallotTally{}, nil
}

type TestApp struct {
	Server *httptest.Server
	Client *http.Client
	Store  *memory.Store
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	store := memory.NewStore(nil)
	deps := services.Dependencies{
		Elections:      store,
		Candidates:     store,
		EligibleVoters: store,
		Users:          store,
		Ballots:        store,
		Keys:           stubKeys{},
	}
	router := handler.NewHandler(handler.Handlers{
		Elections:      handler.NewElectionHandler(services.NewElectionService(deps)),
		Candidates:     handler.NewCandidateHandler(services.NewCandidateService(deps)),
		EligibleVoters: handler.NewEligibleVoterHandler(services.NewEligibleVoterService(deps)),
		Results:        handler.NewResultHandler(services.NewResultService(deps)),
		Ballots:        handler.NewBallotHandler(services.NewBallotService(deps)),
	}, handler.AuthConfig{JWTSecret: []byte(jwtSecret), InternalAPISecret: internalSecret})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &TestApp{Server: server, Client: server.Client(), Store: store}
}

func token(t *testing.T, sub uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (app *TestApp) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func onlineElectionBody() map[string]any {
	now := time.Now().UTC()
	return map[string]any{
		"type":         "ONLINE",
		"name":         "Board election",
		"open_voting":  now.Add(48 * time.Hour),
		"close_voting": now.Add(72 * time.Hour),
	}
}

func TestAdminAuthorization(t *testing.T) {
	app := setupTestApp(t)

	t.Run("missing token", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, "/api/admin/elections", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("voter token is forbidden", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, "/api/admin/elections", token(t, uuid.New(), ""), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("role claim must be ADMIN", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, "/api/admin/elections", token(t, uuid.New(), "admin"), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = app.do(t, http.MethodGet, "/api/admin/elections", token(t, uuid.New(), "ADMIN"), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("token without expiry is rejected", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  uuid.New().String(),
			"role": handler.RoleAdmin,
		}).SignedString([]byte(jwtSecret))
		require.NoError(t, err)

		resp := app.do(t, http.MethodGet, "/api/admin/elections", raw, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  uuid.New().String(),
			"role": handler.RoleAdmin,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("other"))
		require.NoError(t, err)

		resp := app.do(t, http.MethodGet, "/api/admin/elections", raw, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin token via cookie", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, app.Server.URL+"/api/admin/elections", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token(t, uuid.New(), handler.RoleAdmin)})

		resp, err := app.Client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestElectionFlow(t *testing.T) {
	app := setupTestApp(t)
	admin := token(t, uuid.New(), handler.RoleAdmin)

	resp := app.do(t, http.MethodPost, "/api/admin/elections", admin, onlineElectionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	election := decode[domain.Election](t, resp)
	assert.Equal(t, domain.KeysStatusPendingCreated, election.KeysStatus)
	base := fmt.Sprintf("/api/admin/elections/%s", election.ID)

	t.Run("publishing before keys are confirmed", func(t *testing.T) {
		resp := app.do(t, http.MethodPost, base+"/publish", admin, nil)
		require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
		body := decode[errorBody](t, resp)
		assert.Equal(t, "PRECONDITION_FAILED", body.Code)
		assert.Equal(t, domain.ErrKeysNotReady.Message, body.Message)
	})

	t.Run("key service callback needs the api key", func(t *testing.T) {
		path := fmt.Sprintf("/api/internal/elections/%s/keys", election.ID)
		payload := map[string]string{"status": "CREATED", "publicEncrypt": "enc", "publicSigning": "c2ln"}

		resp := app.do(t, http.MethodPost, path, "", payload)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		req, err := http.NewRequest(http.MethodPost, app.Server.URL+path, bytes.NewBufferString(`{"status":"CREATED","publicEncrypt":"enc","publicSigning":"c2ln"}`))
		require.NoError(t, err)
		req.Header.Set("X-Api-Key", internalSecret)
		resp, err = app.Client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, domain.KeysStatusCreated, decode[domain.Election](t, resp).KeysStatus)
	})

	t.Run("candidates", func(t *testing.T) {
		resp := app.do(t, http.MethodPost, base+"/candidates", admin, map[string]any{"name": "Alice", "number": 1})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = app.do(t, http.MethodPost, base+"/candidates", admin, map[string]any{"name": "Bob", "number": 1})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decode[errorBody](t, resp).Code)

		resp = app.do(t, http.MethodGet, base+"/candidates", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]domain.ElectionCandidate](t, resp), 1)
	})

	t.Run("publish and list", func(t *testing.T) {
		resp := app.do(t, http.MethodPost, base+"/publish", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotNil(t, decode[domain.Election](t, resp).PublishDate)

		resp = app.do(t, http.MethodGet, "/api/admin/elections?published=true&type=ONLINE", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]domain.Election](t, resp), 1)

		resp = app.do(t, http.MethodGet, "/api/admin/elections?published=maybe", admin, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("result upload before voting closes", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost,
			fmt.Sprintf("%s/api/internal/elections/%s/online-result", app.Server.URL, election.ID),
			bytes.NewBufferString(`{"status":"COUNT_FAILED"}`))
		require.NoError(t, err)
		req.Header.Set("X-Api-Key", internalSecret)

		resp, err := app.Client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	})

	t.Run("result summary", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, base+"/result", admin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[domain.ElectionResult](t, resp)
		assert.Equal(t, election.ID, result.ElectionID)
		assert.Len(t, result.Candidates, 1)
	})
}

func TestErrorMapping(t *testing.T) {
	app := setupTestApp(t)
	admin := token(t, uuid.New(), handler.RoleAdmin)

	resp := app.do(t, http.MethodGet, "/api/admin/elections/"+uuid.NewString(), admin, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errorBody{Code: "NOT_FOUND", Message: "election not found"}, decode[errorBody](t, resp))

	resp = app.do(t, http.MethodGet, "/api/admin/elections/not-a-uuid", admin, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[errorBody](t, resp).Code)

	body := onlineElectionBody()
	body["type"] = "POSTAL"
	resp = app.do(t, http.MethodPost, "/api/admin/elections", admin, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, app.Server.URL+"/api/admin/elections", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	raw, err := app.Client.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestBallotRoutes(t *testing.T) {
	app := setupTestApp(t)
	admin := token(t, uuid.New(), handler.RoleAdmin)
	voterID := uuid.New()
	app.Store.SetUser(domain.User{ID: voterID, Name: "Voter", PhoneNumber: "+15550001111"})
	voter := token(t, voterID, "")

	resp := app.do(t, http.MethodPost, "/api/admin/elections", admin, onlineElectionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	election := decode[domain.Election](t, resp)

	resp = app.do(t, http.MethodPost, fmt.Sprintf("/api/admin/elections/%s/eligible-voters", election.ID), admin, map[string]any{
		"identifier":    "PHONE_NUMBER",
		"phone_numbers": []string{"+15550001111"},
		"type":          "ONLINE",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ballots := fmt.Sprintf("/api/elections/%s/ballots", election.ID)

	t.Run("voting has not opened", func(t *testing.T) {
		resp := app.do(t, http.MethodPost, ballots, voter, map[string]string{"ballot": "ciphertext"})
		require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
		assert.Equal(t, "PRECONDITION_FAILED", decode[errorBody](t, resp).Code)
	})

	t.Run("has voted", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, ballots+"/me", voter, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]bool{"voted": false}, decode[map[string]bool](t, resp))
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := app.do(t, http.MethodGet, ballots+"/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
