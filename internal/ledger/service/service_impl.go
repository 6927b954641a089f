package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/invozo/invozo/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) handle(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return s.db
}

// CreateEntry validates and writes one balanced posting: a header row plus
// its lines. Entries are append-only; nothing updates or deletes them.
func (s *Service) CreateEntry(ctx context.Context, db *gorm.DB, entry ledgerdomain.NewEntry) error {
	if entry.OrgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}
	if strings.TrimSpace(entry.SourceType) == "" {
		return ledgerdomain.ErrInvalidSourceType
	}
	if entry.SourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	if strings.TrimSpace(entry.Currency) == "" {
		return ledgerdomain.ErrInvalidCurrency
	}
	if entry.OccurredAt.IsZero() {
		return ledgerdomain.ErrInvalidOccurredAt
	}
	if err := ledgerdomain.ValidateBalanced(entry.Lines); err != nil {
		return err
	}

	now := time.Now().UTC()
	header := ledgerdomain.LedgerEntry{
		ID:         s.genID.Generate(),
		OrgID:      entry.OrgID,
		SourceType: entry.SourceType,
		SourceID:   entry.SourceID,
		Currency:   entry.Currency,
		OccurredAt: entry.OccurredAt,
		CreatedAt:  now,
	}

	conn := s.handle(db).WithContext(ctx)
	if err := conn.Create(&header).Error; err != nil {
		return err
	}
	for i := range entry.Lines {
		entry.Lines[i].ID = s.genID.Generate()
		entry.Lines[i].LedgerEntryID = header.ID
		entry.Lines[i].CreatedAt = now
		if err := conn.Create(&entry.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// EnsureAccount returns the org's account for code, creating it on first use.
func (s *Service) EnsureAccount(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code, name string) (snowflake.ID, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return 0, ledgerdomain.ErrInvalidAccount
	}

	conn := s.handle(db).WithContext(ctx)
	var account ledgerdomain.LedgerAccount
	err := conn.First(&account, "org_id = ? AND code = ?", orgID, code).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	account = ledgerdomain.LedgerAccount{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := conn.Create(&account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}
