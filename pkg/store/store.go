package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/calculab/calcu/pkg/domain"
)

// usageTable is the append-only usage log table.
const usageTable = "calcu_usage"

// UsageStore is the HTTP client for the remote usage log. It speaks a
// PostgREST-style contract: filtered ordered selects and single-row
// inserts against the calcu_usage table. Row-level access control runs
// server-side off the caller's access token.
type UsageStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a usage-store client. apiKey is the project's public key.
func New(baseURL, apiKey string) *UsageStore {
	return &UsageStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// usageRow is the wire shape of one calcu_usage row.
type usageRow struct {
	UserID string  `json:"user_id,omitempty"`
	Input  float64 `json:"input"`
	Result float64 `json:"result"`
	// created_at is assigned by the store on insert.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// History returns all usage records for userID, newest first. The store
// orders by created_at descending; the order is preserved as received.
func (s *UsageStore) History(ctx context.Context, accessToken string, userID uuid.UUID) ([]domain.UsageRecord, error) {
	params := url.Values{}
	params.Set("select", "input,result,created_at")
	params.Set("user_id", "eq."+userID.String())
	params.Set("order", "created_at.desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/"+usageTable+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("store.History: create request: %w", err)
	}
	s.setHeaders(req, accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store.History: do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("store.History: %w", readStoreError(resp))
	}

	var rows []usageRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("store.History: decode response: %w", err)
	}
	records := make([]domain.UsageRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, domain.UsageRecord{
			Input:     r.Input,
			Result:    r.Result,
			CreatedAt: r.CreatedAt,
		})
	}
	return records, nil
}

// Insert appends one usage row for userID. Duplicate (input, result)
// tuples are legal; the store assigns created_at.
func (s *UsageStore) Insert(ctx context.Context, accessToken string, userID uuid.UUID, input, result float64) error {
	rows := []usageRow{{UserID: userID.String(), Input: input, Result: result}}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("store.Insert: marshal row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/v1/"+usageTable, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("store.Insert: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req, accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store.Insert: do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return fmt.Errorf("store.Insert: %w", readStoreError(resp))
	}
	return nil
}

func (s *UsageStore) setHeaders(req *http.Request, accessToken string) {
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// StoreError represents a non-2xx response from the usage store.
type StoreError struct {
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func readStoreError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &StoreError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return &StoreError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	return &StoreError{StatusCode: resp.StatusCode, Message: string(body)}
}
