package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDatasheetSize caps how much of a datasheet response is read into memory.
const maxDatasheetSize = 50 << 20 // 50 MB

// Client is the Calcu backend API client (compute + datasheet endpoints).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new backend client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Calculate submits the raw input string to the compute endpoint and returns
// the numeric result. The input is forwarded as typed; the backend owns
// validation, so an unparseable value is its problem to report.
func (c *Client) Calculate(ctx context.Context, input string) (float64, error) {
	var out struct {
		Result float64 `json:"result"`
	}
	body := map[string]string{"input": input}
	if err := c.postJSON(ctx, "/api/calculate", body, &out); err != nil {
		return 0, fmt.Errorf("client.Calculate: %w", err)
	}
	return out.Result, nil
}

// Datasheet is a fetched datasheet payload plus the response metadata the
// caller needs to name the file. ContentDisposition is the raw header value
// and may be empty.
type Datasheet struct {
	Data               []byte
	ContentDisposition string
}

// DownloadDatasheet fetches the datasheet PDF for a manufacturer part number.
func (c *Client) DownloadDatasheet(ctx context.Context, mpn string) (*Datasheet, error) {
	payload, err := json.Marshal(map[string]string{"MPN": mpn})
	if err != nil {
		return nil, fmt.Errorf("client.DownloadDatasheet: marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/download-datasheet", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("client.DownloadDatasheet: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.DownloadDatasheet: do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("client.DownloadDatasheet: %w", readHTTPError(resp))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasheetSize))
	if err != nil {
		return nil, fmt.Errorf("client.DownloadDatasheet: read body: %w", err)
	}
	return &Datasheet{
		Data:               data,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readHTTPError turns an error response into an *HTTPError, preferring the
// backend's JSON {"detail": ...} body when present.
func readHTTPError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Detail: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Detail: apiErr.Detail}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Detail: string(body)}
}
