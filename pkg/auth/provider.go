package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/calculab/calcu/pkg/domain"
)

// Provider is the HTTP client for the identity service. It speaks a
// GoTrue-style REST contract: signup, password-grant token exchange,
// logout and a bearer-authenticated user lookup.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProvider creates a new identity-provider client. apiKey is the
// project's public (anon) key and is sent on every request.
func NewProvider(baseURL, apiKey string) *Provider {
	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProviderError is an error reported by the identity provider. Its message
// is the provider's own human-readable text, passed through verbatim.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return e.Message
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp registers a new user. A successful sign-up does not return a live
// session: the provider may require out-of-band email confirmation first.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	if err := p.doRequest(ctx, http.MethodPost, "/auth/v1/signup", "", credentials{email, password}, nil); err != nil {
		return fmt.Errorf("auth.SignUp: %w", err)
	}
	return nil
}

// SignIn exchanges credentials for a session via the password grant.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var out struct {
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
		ExpiresIn    int          `json:"expires_in"`
		User         providerUser `json:"user"`
	}
	err := p.doRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{email, password}, &out)
	if err != nil {
		return nil, fmt.Errorf("auth.SignIn: %w", err)
	}

	userID, err := uuid.Parse(out.User.ID)
	if err != nil {
		return nil, fmt.Errorf("auth.SignIn: bad user id %q: %w", out.User.ID, err)
	}
	return &domain.Session{
		UserID:       userID,
		Email:        out.User.Email,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// SignOut revokes the given access token on the provider.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if err := p.doRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("auth.SignOut: %w", err)
	}
	return nil
}

// User looks up the user behind an access token. Used to validate a
// restored session before treating it as live.
func (p *Provider) User(ctx context.Context, accessToken string) (uuid.UUID, string, error) {
	var u providerUser
	if err := p.doRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return uuid.Nil, "", fmt.Errorf("auth.User: %w", err)
	}
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("auth.User: bad user id %q: %w", u.ID, err)
	}
	return userID, u.Email, nil
}

func (p *Provider) doRequest(ctx context.Context, method, path, token string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return readProviderError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readProviderError extracts the provider's message from an error response.
// GoTrue uses a handful of body shapes depending on the endpoint.
func readProviderError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		for _, msg := range []string{apiErr.Msg, apiErr.ErrorDescription, apiErr.Message} {
			if msg != "" {
				return &ProviderError{StatusCode: resp.StatusCode, Message: msg}
			}
		}
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: string(body)}
}
