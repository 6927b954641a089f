package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateResponse carries the plaintext key exactly once.
type CreateResponse struct {
	Response
	Key string `json:"key"`
}

type Response struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LastFour   string     `json:"last_four"`
	Active     bool       `json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	List(ctx context.Context) ([]Response, error)
	Revoke(ctx context.Context, id string) error
	// Authenticate resolves a plaintext key to its organization. Inactive and
	// expired keys fail with ErrUnauthorized.
	Authenticate(ctx context.Context, raw string) (orgID, keyID snowflake.ID, err error)
}
