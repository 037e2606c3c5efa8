package roadmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// WorkerStore keeps roadmaps in a remote persistence service. The service
// exposes GET, PUT and DELETE on {baseURL}/roadmaps/{learnerID} with a JSON
// Record body and answers 404 for unknown learners.
type WorkerStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// WorkerOption configures a WorkerStore.
type WorkerOption func(*WorkerStore)

// WithWorkerHTTPClient sets a custom HTTP client.
func WithWorkerHTTPClient(client *http.Client) WorkerOption {
	return func(s *WorkerStore) {
		s.client = client
	}
}

// WithWorkerToken sends token as a bearer credential on every request.
func WithWorkerToken(token string) WorkerOption {
	return func(s *WorkerStore) {
		s.token = token
	}
}

// NewWorkerStore creates a store backed by the service at baseURL.
func NewWorkerStore(baseURL string, opts ...WorkerOption) *WorkerStore {
	s := &WorkerStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WorkerStore) Get(ctx context.Context, learnerID string) (Record, error) {
	resp, body, err := s.do(ctx, http.MethodGet, learnerID, nil)
	if err != nil {
		return Record{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Record{}, ErrNotFound
	default:
		return Record{}, fmt.Errorf("roadmap worker error (status %d): %s", resp.StatusCode, string(body))
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal roadmap: %w", err)
	}
	if rec.RoadmapString == "" {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *WorkerStore) Save(ctx context.Context, learnerID string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal roadmap: %w", err)
	}
	resp, body, err := s.do(ctx, http.MethodPut, learnerID, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("roadmap worker error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *WorkerStore) Delete(ctx context.Context, learnerID string) error {
	resp, body, err := s.do(ctx, http.MethodDelete, learnerID, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("roadmap worker error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// HealthCheck verifies the service answers.
func (s *WorkerStore) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *WorkerStore) do(ctx context.Context, method, learnerID string, payload []byte) (*http.Response, []byte, error) {
	if learnerID == "" {
		return nil, nil, fmt.Errorf("learner_id is required")
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/roadmaps/"+url.PathEscape(learnerID), reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}
