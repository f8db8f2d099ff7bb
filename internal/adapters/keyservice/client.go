// Package keyservice talks to the external key management service over
// HTTP. Every request carries the shared secret in the X-Api-Key header.
//
// Routes, relative to the base URL:
//
//	POST   /elections/{id}/keys          create keys
//	GET    /elections/{id}/keys          read public keys (404 when absent)
//	DELETE /elections/{id}/keys          schedule destruction
//	POST   /elections/{id}/keys/restore  cancel a scheduled destruction
//	POST   /elections/{id}/count         decrypt and count ballots
package keyservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

const (
	apiKeyHeader   = "X-Api-Key"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

var _ ports.KeyService = (*Client)(nil)

// NewClient builds a client for baseURL. A zero timeout means 10s.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is a definite failure answer from the key service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("key service responded %d", e.StatusCode)
	}
	return fmt.Sprintf("key service responded %d: %s", e.StatusCode, e.Body)
}

type destroyResponse struct {
	DestroyScheduledDuration int64 `json:"destroyScheduledDuration"`
}

type countRequest struct {
	Ballots []countBallot `json:"ballots"`
}

type countBallot struct {
	ID     uuid.UUID `json:"id"`
	Ballot string    `json:"ballot"`
}

type countResponse struct {
	Status    domain.OnlineResultStatus `json:"status"`
	Results   []domain.CandidateVotes   `json:"results"`
	Signature string                    `json:"signature"`
}

func (c *Client) CreateKeys(ctx context.Context, electionID uuid.UUID) (ports.ElectionKeys, error) {
	var keys ports.ElectionKeys
	if _, err := c.do(ctx, http.MethodPost, keysPath(electionID), nil, &keys); err != nil {
		return ports.ElectionKeys{}, err
	}
	return keys, nil
}

func (c *Client) GetKeys(ctx context.Context, electionID uuid.UUID) (*ports.ElectionKeys, error) {
	var keys ports.ElectionKeys
	_, err := c.do(ctx, http.MethodGet, keysPath(electionID), nil, &keys)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &keys, nil
}

func (c *Client) DestroyKeys(ctx context.Context, electionID uuid.UUID) (ports.KeysDestroyResult, error) {
	var res destroyResponse
	if _, err := c.do(ctx, http.MethodDelete, keysPath(electionID), nil, &res); err != nil {
		return ports.KeysDestroyResult{}, err
	}
	return ports.KeysDestroyResult{
		DestroyScheduledDuration: time.Duration(res.DestroyScheduledDuration) * time.Second,
	}, nil
}

func (c *Client) RestoreKeys(ctx context.Context, electionID uuid.UUID) error {
	_, err := c.do(ctx, http.MethodPost, keysPath(electionID)+"/restore", nil, nil)
	return err
}

// CountBallots returns an empty tally when the service accepts the job and
// reports the result later through the callback.
func (c *Client) CountBallots(ctx context.Context, electionID uuid.UUID, ballots []domain.ElectionBallot) (ports.BallotTally, error) {
	req := countRequest{Ballots: make([]countBallot, 0, len(ballots))}
	for _, b := range ballots {
		req.Ballots = append(req.Ballots, countBallot{ID: b.ID, Ballot: b.Ballot})
	}

	var res countResponse
	status, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/elections/%s/count", electionID), req, &res)
	if err != nil {
		return ports.BallotTally{}, err
	}
	if status == http.StatusAccepted {
		return ports.BallotTally{}, nil
	}
	return ports.BallotTally{Status: res.Status, Results: res.Results, Signature: res.Signature}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode key service request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build key service request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%s %s: %w: %w", method, path, ports.ErrKeyServiceTimeout, err)
		}
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGatewayTimeout {
		return resp.StatusCode, fmt.Errorf("%s %s: %w", method, path, ports.ErrKeyServiceTimeout)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusAccepted {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode key service response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func keysPath(electionID uuid.UUID) string {
	return fmt.Sprintf("/elections/%s/keys", electionID)
}
