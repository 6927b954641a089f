package repository

import (
	"context"

	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) auditdomain.Repository {
	return &store{db: db}
}

func (s *store) handle(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return s.db
}

func (s *store) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return s.handle(db).WithContext(ctx).Create(entry).Error
}

func (s *store) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	query := s.handle(db).WithContext(ctx).
		Where("org_id = ?", filter.OrgID).
		Order("id DESC")
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.ActorType != "" {
		query = query.Where("actor_type = ?", filter.ActorType)
	}
	if filter.StartAt != nil {
		query = query.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		query = query.Where("created_at < ?", *filter.EndAt)
	}
	if filter.AfterID != 0 {
		query = query.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []auditdomain.AuditLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
