package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// keyPrefix marks generated keys so leaked strings are recognizable in scans.
const keyPrefix = "ivz_"

// APIKey authenticates machine clients. Only the hash is stored; the
// plaintext is shown once at creation.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`
	KeyHash    string       `gorm:"type:text;not null;uniqueIndex"`
	LastFour   string       `gorm:"type:text;not null"`
	Active     bool         `gorm:"not null;default:true"`
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// GenerateAPIKey returns a fresh plaintext key.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(raw), nil
}

// HashAPIKey derives the stored lookup hash from a plaintext key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// LastFour returns the displayable tail of a plaintext key.
func LastFour(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= 4 {
		return raw
	}
	return raw[len(raw)-4:]
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrNotFound            = errors.New("api_key_not_found")
	ErrUnauthorized        = errors.New("unauthorized")
)
