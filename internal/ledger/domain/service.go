package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// NewEntry is the input for a ledger posting.
type NewEntry struct {
	OrgID      snowflake.ID
	SourceType string
	SourceID   snowflake.ID
	Currency   string
	OccurredAt time.Time
	Lines      []LedgerEntryLine
}

// Service writes immutable double-entry postings. Both methods accept an
// explicit db handle so callers can post inside their own transaction; nil
// falls back to the bound connection.
type Service interface {
	CreateEntry(ctx context.Context, db *gorm.DB, entry NewEntry) error
	EnsureAccount(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code, name string) (snowflake.ID, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines    = errors.New("invalid_entry_lines")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
)
