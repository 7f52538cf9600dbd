package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated user session.
// Token material is issued by the identity provider and is never
// inspected locally; it is only replayed on outgoing requests.
type Session struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}
