package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/orgcontext"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/invozo/invozo/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	productrepo repository.Repository[productdomain.Product]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) productdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("product.service"),

		genID:       p.GenID,
		productrepo: repository.ProvideStore[productdomain.Product](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req productdomain.CreateRequest) (*productdomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, productdomain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, productdomain.ErrInvalidName
	}
	if req.UnitPrice.IsNegative() {
		return nil, productdomain.ErrInvalidUnitPrice
	}
	if err := validateRate(req.TaxRate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := productdomain.Product{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.productrepo.Insert(ctx, nil, &product); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return toResponse(&product), nil
}

func (s *Service) List(ctx context.Context, req productdomain.ListRequest) ([]productdomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, productdomain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", orgID).Order("name ASC")
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if req.Active != nil {
		query = query.Where("active = ?", *req.Active)
	}

	var products []productdomain.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}

	responses := make([]productdomain.Response, 0, len(products))
	for i := range products {
		responses = append(responses, *toResponse(&products[i]))
	}
	return responses, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*productdomain.Response, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(product), nil
}

func (s *Service) Update(ctx context.Context, req productdomain.UpdateRequest) (*productdomain.Response, error) {
	product, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, productdomain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, productdomain.ErrInvalidUnitPrice
		}
		product.UnitPrice = *req.UnitPrice
	}
	if req.TaxRate != nil {
		if err := validateRate(req.TaxRate); err != nil {
			return nil, err
		}
		product.TaxRate = req.TaxRate
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.productrepo.Save(ctx, nil, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return toResponse(product), nil
}

func (s *Service) Archive(ctx context.Context, id string) (*productdomain.Response, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	if err := s.productrepo.Save(ctx, nil, product); err != nil {
		return nil, fmt.Errorf("archive product: %w", err)
	}
	return toResponse(product), nil
}

func (s *Service) load(ctx context.Context, id string) (*productdomain.Product, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, productdomain.ErrInvalidOrganization
	}
	productID, err := productdomain.ParseID(id)
	if err != nil {
		return nil, productdomain.ErrInvalidID
	}
	product, err := s.productrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", productID, orgID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, productdomain.ErrNotFound
	}
	return product, nil
}

func validateRate(rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(oneHundred) {
		return productdomain.ErrInvalidTaxRate
	}
	return nil
}

func toResponse(product *productdomain.Product) *productdomain.Response {
	return &productdomain.Response{
		ID:          product.ID.String(),
		Name:        product.Name,
		Description: product.Description,
		UnitPrice:   product.UnitPrice,
		TaxRate:     product.TaxRate,
		Active:      product.Active,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}
