package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/pkg/db/pagination"
	"github.com/invozo/invozo/pkg/repository"
	"github.com/ttacon/libphonenumber"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	customerrepo repository.Repository[customerdomain.Customer]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("customer.service"),

		genID:        p.GenID,
		customerrepo: repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateRequest) (*customerdomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, customerdomain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, customerdomain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, customerdomain.ErrInvalidEmail
	}
	phone, err := normalizePhone(req.Phone, req.Region)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	customer := customerdomain.Customer{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customerrepo.Insert(ctx, nil, &customer); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return toResponse(&customer), nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListRequest) (customerdomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return customerdomain.ListResponse{}, customerdomain.ErrInvalidOrganization
	}

	afterID, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return customerdomain.ListResponse{}, err
	}
	limit := req.Normalize()

	query := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("id ASC").
		Limit(limit + 1)
	if afterID != 0 {
		query = query.Where("id > ?", afterID)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		query = query.Where("email = ?", email)
	}

	var customers []customerdomain.Customer
	if err := query.Find(&customers).Error; err != nil {
		return customerdomain.ListResponse{}, err
	}

	resp := customerdomain.ListResponse{}
	if len(customers) > limit {
		customers = customers[:limit]
		resp.NextPageToken = pagination.EncodeToken(customers[len(customers)-1].ID)
	}
	for i := range customers {
		resp.Customers = append(resp.Customers, *toResponse(&customers[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*customerdomain.Response, error) {
	customer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(customer), nil
}

func (s *Service) Update(ctx context.Context, req customerdomain.UpdateRequest) (*customerdomain.Response, error) {
	customer, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, customerdomain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return nil, customerdomain.ErrInvalidEmail
		}
		customer.Email = email
	}
	if req.Phone != nil {
		phone, err := normalizePhone(*req.Phone, req.Region)
		if err != nil {
			return nil, err
		}
		customer.Phone = phone
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}

	customer.UpdatedAt = time.Now().UTC()
	if err := s.customerrepo.Save(ctx, nil, customer); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return toResponse(customer), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	customer, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.customerrepo.Delete(ctx, nil, "id = ? AND org_id = ?", customer.ID, customer.OrgID); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*customerdomain.Customer, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, customerdomain.ErrInvalidOrganization
	}
	customerID, err := customerdomain.ParseID(id)
	if err != nil {
		return nil, customerdomain.ErrInvalidID
	}
	customer, err := s.customerrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", customerID, orgID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}
	return customer, nil
}

// normalizePhone stores phones in E.164. Empty input stays empty; anything
// unparsable is rejected rather than stored raw.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "US"
	}
	parsed, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", customerdomain.ErrInvalidPhone
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return "", customerdomain.ErrInvalidPhone
	}
	return libphonenumber.Format(parsed, libphonenumber.E164), nil
}

func toResponse(customer *customerdomain.Customer) *customerdomain.Response {
	return &customerdomain.Response{
		ID:        customer.ID.String(),
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
}
