package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	dashboarddomain "github.com/invozo/invozo/internal/dashboard/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	orgs  organizationdomain.Service
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Orgs  organizationdomain.Service
}

func NewService(p ServiceParam) dashboarddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
		orgs:  p.Orgs,
	}
}

// statusRow matches the GROUP BY projection shared by all three document tables.
type statusRow struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

func (s *Service) Summarize(ctx context.Context) (*dashboarddomain.Summary, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, dashboarddomain.ErrInvalidOrganization
	}
	cfg, err := s.orgs.TaxConfigFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	summary := &dashboarddomain.Summary{
		Outstanding: decimal.Zero,
		Overdue:     decimal.Zero,
		Currency:    cfg.Currency,
		GeneratedAt: s.clock.Now(),
	}

	if summary.Invoices, err = s.bucketize(ctx, "invoices", orgID); err != nil {
		return nil, err
	}
	if summary.Estimates, err = s.bucketize(ctx, "estimates", orgID); err != nil {
		return nil, err
	}
	if summary.Orders, err = s.bucketize(ctx, "orders", orgID); err != nil {
		return nil, err
	}

	for _, bucket := range summary.Invoices {
		switch bucket.Status {
		case "sent", "pending", "partially_paid":
			summary.Outstanding = summary.Outstanding.Add(bucket.Total)
		case "overdue":
			summary.Outstanding = summary.Outstanding.Add(bucket.Total)
			summary.Overdue = summary.Overdue.Add(bucket.Total)
		}
	}
	return summary, nil
}

func (s *Service) bucketize(ctx context.Context, table string, orgID snowflake.ID) ([]dashboarddomain.StatusBucket, error) {
	var rows []statusRow
	err := s.db.WithContext(ctx).
		Table(table).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("org_id = ?", orgID).
		Group("status").
		Order("status ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	buckets := make([]dashboarddomain.StatusBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, dashboarddomain.StatusBucket{
			Status: row.Status,
			Count:  row.Count,
			Total:  row.Total,
		})
	}
	return buckets, nil
}
