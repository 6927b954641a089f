package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	billingservice "github.com/invozo/invozo/internal/billing/service"
	"github.com/invozo/invozo/internal/clock"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	"github.com/invozo/invozo/internal/events"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/pkg/db/pagination"
	"github.com/invozo/invozo/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID  *snowflake.Node
	orgs   organizationdomain.Service
	items  *billingservice.ItemBuilder
	outbox *events.Outbox

	orderrepo    repository.Repository[orderdomain.Order]
	itemrepo     repository.Repository[billingdomain.LineItem]
	customerrepo repository.Repository[customerdomain.Customer]
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Orgs   organizationdomain.Service
	Items  *billingservice.ItemBuilder
	Outbox *events.Outbox
}

func NewService(p ServiceParam) orderdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		clock: p.Clock,

		genID:  p.GenID,
		orgs:   p.Orgs,
		items:  p.Items,
		outbox: p.Outbox,

		orderrepo:    repository.ProvideStore[orderdomain.Order](p.DB),
		itemrepo:     repository.ProvideStore[billingdomain.LineItem](p.DB),
		customerrepo: repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req orderdomain.CreateRequest) (*orderdomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, orderdomain.ErrInvalidOrganization
	}

	customerID, err := customerdomain.ParseID(req.CustomerID)
	if err != nil {
		return nil, orderdomain.ErrInvalidCustomer
	}
	customer, err := s.customerrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", customerID, orgID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, orderdomain.ErrInvalidCustomer
	}

	cfg, err := s.orgs.TaxConfigFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	placedAt := s.clock.Now()
	if req.PlacedAt != nil {
		placedAt = req.PlacedAt.UTC()
	}

	now := s.clock.Now()
	order := orderdomain.Order{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Number:          billingdomain.NewOrderNumber(),
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerAddress: customer.Address,
		PlacedAt:        placedAt,
		Status:          orderdomain.StatusPending,
		TaxRate:         cfg.DefaultTaxRate,
		Currency:        cfg.Currency,
		Notes:           strings.TrimSpace(req.Notes),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, orgID, billingdomain.DocumentKindOrder, order.ID, req.Items)
		if err != nil {
			return err
		}
		totals := billingdomain.ComputeTotals(items, cfg.DefaultTaxRate)
		order.Subtotal = totals.Subtotal
		order.Tax = totals.Tax
		order.Total = totals.Total

		if err := s.orderrepo.Insert(ctx, tx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range items {
			if err := s.itemrepo.Insert(ctx, tx, &items[i]); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: orgID,
			Type:  events.EventOrderCreated,
			Payload: events.DocumentPayload{
				DocumentID: order.ID.String(),
				Number:     order.Number,
				CustomerID: order.CustomerID.String(),
			}.ToMap(),
			DedupeKey: "order.created:" + order.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("org_id", orgID.String()),
	)
	return toResponse(&order, items), nil
}

func (s *Service) List(ctx context.Context, req orderdomain.ListRequest) (orderdomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return orderdomain.ListResponse{}, orderdomain.ErrInvalidOrganization
	}

	afterID, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return orderdomain.ListResponse{}, err
	}
	limit := req.Normalize()

	query := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("id DESC").
		Limit(limit + 1)
	if afterID != 0 {
		query = query.Where("id < ?", afterID)
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !orderdomain.OrderStatus(status).IsValid() {
			return orderdomain.ListResponse{}, orderdomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", status)
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := customerdomain.ParseID(raw)
		if err != nil {
			return orderdomain.ListResponse{}, orderdomain.ErrInvalidCustomer
		}
		query = query.Where("customer_id = ?", customerID)
	}

	var orders []orderdomain.Order
	if err := query.Find(&orders).Error; err != nil {
		return orderdomain.ListResponse{}, err
	}

	var next string
	if len(orders) > limit {
		orders = orders[:limit]
		next = pagination.EncodeToken(orders[limit-1].ID)
	}

	responses := make([]orderdomain.Response, 0, len(orders))
	for i := range orders {
		responses = append(responses, *toResponse(&orders[i], nil))
	}
	return orderdomain.ListResponse{
		PageInfo: pagination.PageInfo{NextPageToken: next},
		Orders:   responses,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*orderdomain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, order)
	if err != nil {
		return nil, err
	}
	return toResponse(order, items), nil
}

func (s *Service) Update(ctx context.Context, req orderdomain.UpdateRequest) (*orderdomain.Response, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, orderdomain.ErrInvalidTransition
	}

	cfg, err := s.orgs.TaxConfigFor(ctx, order.OrgID)
	if err != nil {
		return nil, err
	}

	notes := order.Notes
	if req.Notes != nil {
		notes = strings.TrimSpace(*req.Notes)
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, order.OrgID, billingdomain.DocumentKindOrder, order.ID, req.Items)
		if err != nil {
			return err
		}
		totals := billingdomain.ComputeTotals(items, cfg.DefaultTaxRate)

		result := tx.Model(&orderdomain.Order{}).
			Where("id = ? AND org_id = ? AND version = ?", order.ID, order.OrgID, req.Version).
			Updates(map[string]any{
				"notes":      notes,
				"subtotal":   totals.Subtotal,
				"tax":        totals.Tax,
				"total":      totals.Total,
				"version":    req.Version + 1,
				"updated_at": s.clock.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return orderdomain.ErrVersionConflict
		}

		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			order.OrgID, billingdomain.DocumentKindOrder, order.ID,
		); err != nil {
			return err
		}
		for i := range items {
			if err := s.itemrepo.Insert(ctx, tx, &items[i]); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, req.ID)
}

func (s *Service) SetStatus(ctx context.Context, req orderdomain.SetStatusRequest) (*orderdomain.Response, error) {
	if !req.Status.IsValid() {
		return nil, orderdomain.ErrInvalidStatus
	}
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return nil, orderdomain.ErrInvalidTransition
	}

	from := order.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&orderdomain.Order{}).
			Where("id = ? AND org_id = ? AND version = ?", order.ID, order.OrgID, req.Version).
			Updates(map[string]any{
				"status":     req.Status,
				"version":    req.Version + 1,
				"updated_at": s.clock.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return orderdomain.ErrVersionConflict
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: order.OrgID,
			Type:  events.EventOrderStatusSet,
			Payload: events.DocumentPayload{
				DocumentID: order.ID.String(),
				Number:     order.Number,
				FromStatus: string(from),
				ToStatus:   string(req.Status),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("order.status:%s:%d", order.ID, req.Version+1),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, req.ID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			order.OrgID, billingdomain.DocumentKindOrder, order.ID,
		); err != nil {
			return err
		}
		return s.orderrepo.Delete(ctx, tx, "id = ? AND org_id = ?", order.ID, order.OrgID)
	})
}

func (s *Service) load(ctx context.Context, id string) (*orderdomain.Order, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, orderdomain.ErrInvalidOrganization
	}
	orderID, err := orderdomain.ParseID(id)
	if err != nil {
		return nil, orderdomain.ErrInvalidID
	}
	order, err := s.orderrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", orderID, orgID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrNotFound
	}
	return order, nil
}

func (s *Service) loadItems(ctx context.Context, order *orderdomain.Order) ([]billingdomain.LineItem, error) {
	return s.itemrepo.FindAll(ctx, nil,
		"org_id = ? AND document_kind = ? AND document_id = ?",
		order.OrgID, billingdomain.DocumentKindOrder, order.ID,
	)
}

func toResponse(order *orderdomain.Order, items []billingdomain.LineItem) *orderdomain.Response {
	return &orderdomain.Response{
		ID:              order.ID.String(),
		Number:          order.Number,
		CustomerID:      order.CustomerID.String(),
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerAddress: order.CustomerAddress,
		PlacedAt:        order.PlacedAt,
		Status:          order.Status,
		TaxRate:         order.TaxRate,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Total:           order.Total,
		Currency:        order.Currency,
		Notes:           order.Notes,
		Version:         order.Version,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
