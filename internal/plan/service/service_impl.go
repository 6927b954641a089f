package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	"github.com/invozo/invozo/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID    *snowflake.Node
	planrepo repository.Repository[plandomain.Plan]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		clock: p.Clock,

		genID:    p.GenID,
		planrepo: repository.ProvideStore[plandomain.Plan](p.DB),
	}
}

// builtinPlans is the catalog seeded on first use. Codes are stable; limits
// and prices may be tuned per deployment via direct updates.
func builtinPlans(genID *snowflake.Node, now time.Time) []plandomain.Plan {
	return []plandomain.Plan{
		{
			ID:                   genID.Generate(),
			Code:                 plandomain.CodeFree,
			Name:                 "Free",
			MonthlyDocumentLimit: 20,
			CustomerLimit:        10,
			MonthlyPrice:         decimal.Zero,
			Currency:             "USD",
			CreatedAt:            now,
		},
		{
			ID:                   genID.Generate(),
			Code:                 plandomain.CodeStarter,
			Name:                 "Starter",
			MonthlyDocumentLimit: 200,
			CustomerLimit:        100,
			MonthlyPrice:         decimal.NewFromInt(19),
			Currency:             "USD",
			CreatedAt:            now,
		},
		{
			ID:                   genID.Generate(),
			Code:                 plandomain.CodeBusiness,
			Name:                 "Business",
			MonthlyDocumentLimit: 0,
			CustomerLimit:        0,
			MonthlyPrice:         decimal.NewFromInt(49),
			Currency:             "USD",
			CreatedAt:            now,
		},
	}
}

// EnsureCatalog inserts the built-in plans, skipping codes that already exist.
func (s *Service) EnsureCatalog(ctx context.Context) error {
	plans := builtinPlans(s.genID, s.clock.Now())
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&plans).Error
}

func (s *Service) List(ctx context.Context) ([]plandomain.Response, error) {
	var plans []plandomain.Plan
	if err := s.db.WithContext(ctx).Order("monthly_price ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	responses := make([]plandomain.Response, 0, len(plans))
	for i := range plans {
		responses = append(responses, toResponse(&plans[i]))
	}
	return responses, nil
}

func (s *Service) Assign(ctx context.Context, code string) (*plandomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, plandomain.ErrInvalidOrganization
	}
	plan, err := s.planByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&organizationdomain.Organization{}).
		Where("id = ?", orgID).
		Updates(map[string]any{"plan_id": plan.ID, "updated_at": s.clock.Now()}).Error
	if err != nil {
		return nil, err
	}
	resp := toResponse(plan)
	return &resp, nil
}

func (s *Service) CheckDocumentQuota(ctx context.Context, orgID snowflake.ID) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil || plan == nil {
		return err
	}
	if plan.MonthlyDocumentLimit <= 0 {
		return nil
	}

	monthStart := monthStartUTC(s.clock.Now())
	var used int64
	for _, table := range []string{"invoices", "estimates", "orders"} {
		var count int64
		err := s.db.WithContext(ctx).Table(table).
			Where("org_id = ? AND created_at >= ?", orgID, monthStart).
			Count(&count).Error
		if err != nil {
			return err
		}
		used += count
	}
	if used >= plan.MonthlyDocumentLimit {
		return plandomain.ErrQuotaExceeded
	}
	return nil
}

func (s *Service) CheckCustomerQuota(ctx context.Context, orgID snowflake.ID) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil || plan == nil {
		return err
	}
	if plan.CustomerLimit <= 0 {
		return nil
	}

	var count int64
	err = s.db.WithContext(ctx).Table("customers").
		Where("org_id = ?", orgID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= plan.CustomerLimit {
		return plandomain.ErrQuotaExceeded
	}
	return nil
}

// planFor returns nil without error when the org has no plan assigned.
func (s *Service) planFor(ctx context.Context, orgID snowflake.ID) (*plandomain.Plan, error) {
	var org organizationdomain.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, plandomain.ErrInvalidOrganization
		}
		return nil, err
	}
	if org.PlanID == nil {
		return nil, nil
	}
	return s.planrepo.FindOne(ctx, nil, "id = ?", *org.PlanID)
}

func (s *Service) planByCode(ctx context.Context, code string) (*plandomain.Plan, error) {
	plan, err := s.planrepo.FindOne(ctx, nil, "code = ?", strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	return plan, nil
}

func monthStartUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func toResponse(plan *plandomain.Plan) plandomain.Response {
	return plandomain.Response{
		ID:                   plan.ID.String(),
		Code:                 plan.Code,
		Name:                 plan.Name,
		MonthlyDocumentLimit: plan.MonthlyDocumentLimit,
		CustomerLimit:        plan.CustomerLimit,
		MonthlyPrice:         plan.MonthlyPrice.StringFixed(2),
		Currency:             plan.Currency,
	}
}
