package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the claim set Supabase places in its access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Identity is the verified caller extracted from an access token.
type Identity struct {
	SubjectID string
	Email     string
	Role      string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserID parses the subject as a UUID, which is how Supabase keys its users.
func (i *Identity) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(i.SubjectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject is not a UUID: %w", err)
	}
	return id, nil
}

func (c *Claims) identity() *Identity {
	identity := &Identity{
		SubjectID: c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		SessionID: c.SessionID,
	}
	if c.IssuedAt != nil {
		identity.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		identity.ExpiresAt = c.ExpiresAt.Time
	}
	return identity
}
