package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	templaterepo repository.Repository[templatedomain.InvoiceTemplate]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) templatedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoicetemplate.service"),

		genID:        p.GenID,
		templaterepo: repository.ProvideStore[templatedomain.InvoiceTemplate](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req templatedomain.CreateRequest) (*templatedomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, templatedomain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, templatedomain.ErrInvalidName
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, templatedomain.ErrInvalidCurrency
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = "en"
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&templatedomain.InvoiceTemplate{}).
		Where("org_id = ?", orgID).Count(&count).Error; err != nil {
		return nil, err
	}
	// The first template an org creates becomes its default.
	isDefault := req.IsDefault || count == 0

	now := time.Now().UTC()
	record := templatedomain.InvoiceTemplate{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		IsDefault: isDefault,
		Locale:    locale,
		Currency:  currency,
		Header:    toJSONMap(req.Header),
		Footer:    toJSONMap(req.Footer),
		Style:     toJSONMap(req.Style),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := tx.Model(&templatedomain.InvoiceTemplate{}).
				Where("org_id = ?", orgID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return s.templaterepo.Insert(ctx, tx, &record)
	})
	if err != nil {
		return nil, err
	}
	return toResponse(&record), nil
}

func (s *Service) List(ctx context.Context, req templatedomain.ListRequest) ([]templatedomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, templatedomain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", orgID).Order("name ASC")
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if req.IsDefault != nil {
		query = query.Where("is_default = ?", *req.IsDefault)
	}

	var records []templatedomain.InvoiceTemplate
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	responses := make([]templatedomain.Response, 0, len(records))
	for i := range records {
		responses = append(responses, *toResponse(&records[i]))
	}
	return responses, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*templatedomain.Response, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(record), nil
}

func (s *Service) Update(ctx context.Context, req templatedomain.UpdateRequest) (*templatedomain.Response, error) {
	record, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, templatedomain.ErrInvalidName
		}
		record.Name = name
	}
	if req.Locale != nil {
		locale := strings.TrimSpace(*req.Locale)
		if locale == "" {
			return nil, templatedomain.ErrInvalidLocale
		}
		record.Locale = locale
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return nil, templatedomain.ErrInvalidCurrency
		}
		record.Currency = currency
	}
	if req.Header != nil {
		record.Header = toJSONMap(req.Header)
	}
	if req.Footer != nil {
		record.Footer = toJSONMap(req.Footer)
	}
	if req.Style != nil {
		record.Style = toJSONMap(req.Style)
	}

	record.UpdatedAt = time.Now().UTC()
	if err := s.templaterepo.Save(ctx, nil, record); err != nil {
		return nil, err
	}
	return toResponse(record), nil
}

func (s *Service) SetDefault(ctx context.Context, id string) (*templatedomain.Response, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&templatedomain.InvoiceTemplate{}).
			Where("org_id = ?", record.OrgID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		record.IsDefault = true
		record.UpdatedAt = time.Now().UTC()
		return s.templaterepo.Save(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}
	return toResponse(record), nil
}

func (s *Service) DefaultFor(ctx context.Context, orgID snowflake.ID) (*templatedomain.Response, error) {
	record, err := s.templaterepo.FindOne(ctx, nil, "org_id = ? AND is_default = ?", orgID, true)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return toResponse(record), nil
}

func (s *Service) load(ctx context.Context, id string) (*templatedomain.InvoiceTemplate, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, templatedomain.ErrInvalidOrganization
	}
	templateID, err := templatedomain.ParseID(id)
	if err != nil {
		return nil, templatedomain.ErrInvalidID
	}
	record, err := s.templaterepo.FindOne(ctx, nil, "id = ? AND org_id = ?", templateID, orgID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, templatedomain.ErrNotFound
	}
	return record, nil
}

func toJSONMap(value map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for key, item := range value {
		out[key] = item
	}
	return out
}

func toResponse(record *templatedomain.InvoiceTemplate) *templatedomain.Response {
	return &templatedomain.Response{
		ID:        record.ID.String(),
		OrgID:     record.OrgID.String(),
		Name:      record.Name,
		IsDefault: record.IsDefault,
		Locale:    record.Locale,
		Currency:  record.Currency,
		Header:    record.Header,
		Footer:    record.Footer,
		Style:     record.Style,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
