package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/cache"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const taxConfigTTL = 30 * time.Second

var decimalHundred = decimal.NewFromInt(100)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID     *snowflake.Node
	orgrepo   repository.Repository[organizationdomain.Organization]
	taxConfig cache.Cache[snowflake.ID, organizationdomain.TaxConfig]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

func NewService(p ServiceParam) organizationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		clock: p.Clock,

		genID:     p.GenID,
		orgrepo:   repository.ProvideStore[organizationdomain.Organization](p.DB),
		taxConfig: cache.NewTTLCache[snowflake.ID, organizationdomain.TaxConfig](),
	}
}

func (s *Service) Create(ctx context.Context, req organizationdomain.CreateRequest) (*organizationdomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, organizationdomain.ErrInvalidName
	}
	currency := normalizeCurrency(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, organizationdomain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	org := organizationdomain.Organization{
		ID:              s.genID.Generate(),
		Name:            name,
		Currency:        currency,
		PrimaryColor:    "#1f2937",
		AutoMarkOverdue: true,
		AutoExpire:      true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orgrepo.Insert(ctx, nil, &org); err != nil {
		return nil, err
	}

	s.log.Info("organization created", zap.String("org_id", org.ID.String()), zap.String("name", org.Name))
	return toResponse(&org), nil
}

func (s *Service) Get(ctx context.Context) (*organizationdomain.Response, error) {
	org, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return toResponse(org), nil
}

func (s *Service) Update(ctx context.Context, req organizationdomain.UpdateRequest) (*organizationdomain.Response, error) {
	org, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, organizationdomain.ErrInvalidName
		}
		org.Name = name
	}
	if req.Currency != nil {
		currency := normalizeCurrency(*req.Currency)
		if len(currency) != 3 {
			return nil, organizationdomain.ErrInvalidCurrency
		}
		org.Currency = currency
	}
	if req.LogoURL != nil {
		org.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.PrimaryColor != nil {
		color := strings.TrimSpace(*req.PrimaryColor)
		if !hexColorPattern.MatchString(color) {
			return nil, organizationdomain.ErrInvalidColor
		}
		org.PrimaryColor = color
	}
	if req.DefaultTaxRate != nil {
		rate := *req.DefaultTaxRate
		if rate.IsNegative() || rate.GreaterThan(decimalHundred) {
			return nil, organizationdomain.ErrInvalidTaxRate
		}
		org.DefaultTaxRate = rate
	}
	if req.PaymentTermsDays != nil {
		if *req.PaymentTermsDays < 0 || *req.PaymentTermsDays > 365 {
			return nil, organizationdomain.ErrInvalidTerms
		}
		org.PaymentTermsDays = *req.PaymentTermsDays
	}
	if req.AutoMarkOverdue != nil {
		org.AutoMarkOverdue = *req.AutoMarkOverdue
	}
	if req.AutoExpire != nil {
		org.AutoExpire = *req.AutoExpire
	}

	org.UpdatedAt = s.clock.Now()
	if err := s.orgrepo.Save(ctx, nil, org); err != nil {
		return nil, err
	}
	s.taxConfig.Delete(org.ID)

	return toResponse(org), nil
}

func (s *Service) TaxConfigFor(ctx context.Context, orgID snowflake.ID) (organizationdomain.TaxConfig, error) {
	if orgID == 0 {
		return organizationdomain.TaxConfig{}, organizationdomain.ErrInvalidOrganization
	}
	if cached, ok := s.taxConfig.Get(orgID); ok {
		return cached, nil
	}

	org, err := s.orgrepo.FindOne(ctx, nil, "id = ?", orgID)
	if err != nil {
		return organizationdomain.TaxConfig{}, err
	}
	if org == nil {
		return organizationdomain.TaxConfig{}, organizationdomain.ErrNotFound
	}

	cfg := organizationdomain.TaxConfig{
		DefaultTaxRate:   org.DefaultTaxRate,
		Currency:         org.Currency,
		PaymentTermsDays: org.PaymentTermsDays,
	}
	s.taxConfig.Set(orgID, cfg, taxConfigTTL)
	return cfg, nil
}

func (s *Service) current(ctx context.Context) (*organizationdomain.Organization, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, organizationdomain.ErrInvalidOrganization
	}
	org, err := s.orgrepo.FindOne(ctx, nil, "id = ?", orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, organizationdomain.ErrNotFound
	}
	return org, nil
}

func toResponse(org *organizationdomain.Organization) *organizationdomain.Response {
	return &organizationdomain.Response{
		ID:               org.ID.String(),
		Name:             org.Name,
		Currency:         org.Currency,
		LogoURL:          org.LogoURL,
		PrimaryColor:     org.PrimaryColor,
		DefaultTaxRate:   org.DefaultTaxRate,
		PaymentTermsDays: org.PaymentTermsDays,
		AutoMarkOverdue:  org.AutoMarkOverdue,
		AutoExpire:       org.AutoExpire,
		CreatedAt:        org.CreatedAt,
		UpdatedAt:        org.UpdatedAt,
	}
}

func normalizeCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
