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
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	"github.com/invozo/invozo/internal/events"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/pkg/db/pagination"
	"github.com/invozo/invozo/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultValidityDays is how long a fresh estimate stays open when the
// client does not set valid_until.
const defaultValidityDays = 30

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID  *snowflake.Node
	orgs   organizationdomain.Service
	items  *billingservice.ItemBuilder
	outbox *events.Outbox

	estimaterepo repository.Repository[estimatedomain.Estimate]
	invoicerepo  repository.Repository[invoicedomain.Invoice]
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

func NewService(p ServiceParam) estimatedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("estimate.service"),
		clock: p.Clock,

		genID:  p.GenID,
		orgs:   p.Orgs,
		items:  p.Items,
		outbox: p.Outbox,

		estimaterepo: repository.ProvideStore[estimatedomain.Estimate](p.DB),
		invoicerepo:  repository.ProvideStore[invoicedomain.Invoice](p.DB),
		itemrepo:     repository.ProvideStore[billingdomain.LineItem](p.DB),
		customerrepo: repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req estimatedomain.CreateRequest) (*estimatedomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, estimatedomain.ErrInvalidOrganization
	}

	customerID, err := customerdomain.ParseID(req.CustomerID)
	if err != nil {
		return nil, estimatedomain.ErrInvalidCustomer
	}
	customer, err := s.customerrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", customerID, orgID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, estimatedomain.ErrInvalidCustomer
	}

	cfg, err := s.orgs.TaxConfigFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.clock.Now()
	if req.IssuedAt != nil {
		issuedAt = req.IssuedAt.UTC()
	}
	validUntil := issuedAt.AddDate(0, 0, defaultValidityDays)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if validUntil.Before(issuedAt) {
		return nil, estimatedomain.ErrInvalidValidUntil
	}

	now := s.clock.Now()
	estimate := estimatedomain.Estimate{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Number:          billingdomain.NewEstimateNumber(),
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerAddress: customer.Address,
		IssuedAt:        issuedAt,
		ValidUntil:      validUntil,
		Status:          estimatedomain.StatusDraft,
		TaxRate:         cfg.DefaultTaxRate,
		Currency:        cfg.Currency,
		Notes:           strings.TrimSpace(req.Notes),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, orgID, billingdomain.DocumentKindEstimate, estimate.ID, req.Items)
		if err != nil {
			return err
		}
		totals := billingdomain.ComputeTotals(items, cfg.DefaultTaxRate)
		estimate.Subtotal = totals.Subtotal
		estimate.Tax = totals.Tax
		estimate.Total = totals.Total

		if err := s.estimaterepo.Insert(ctx, tx, &estimate); err != nil {
			return fmt.Errorf("insert estimate: %w", err)
		}
		for i := range items {
			if err := s.itemrepo.Insert(ctx, tx, &items[i]); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: orgID,
			Type:  events.EventEstimateCreated,
			Payload: events.DocumentPayload{
				DocumentID: estimate.ID.String(),
				Number:     estimate.Number,
				CustomerID: estimate.CustomerID.String(),
			}.ToMap(),
			DedupeKey: "estimate.created:" + estimate.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("estimate created",
		zap.String("estimate_id", estimate.ID.String()),
		zap.String("number", estimate.Number),
		zap.String("org_id", orgID.String()),
	)
	return toResponse(&estimate, items), nil
}

func (s *Service) List(ctx context.Context, req estimatedomain.ListRequest) (estimatedomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return estimatedomain.ListResponse{}, estimatedomain.ErrInvalidOrganization
	}

	afterID, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return estimatedomain.ListResponse{}, err
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
		if !estimatedomain.EstimateStatus(status).IsValid() {
			return estimatedomain.ListResponse{}, estimatedomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", status)
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := customerdomain.ParseID(raw)
		if err != nil {
			return estimatedomain.ListResponse{}, estimatedomain.ErrInvalidCustomer
		}
		query = query.Where("customer_id = ?", customerID)
	}

	var estimates []estimatedomain.Estimate
	if err := query.Find(&estimates).Error; err != nil {
		return estimatedomain.ListResponse{}, err
	}

	var next string
	if len(estimates) > limit {
		estimates = estimates[:limit]
		next = pagination.EncodeToken(estimates[limit-1].ID)
	}

	responses := make([]estimatedomain.Response, 0, len(estimates))
	for i := range estimates {
		responses = append(responses, *toResponse(&estimates[i], nil))
	}
	return estimatedomain.ListResponse{
		PageInfo:  pagination.PageInfo{NextPageToken: next},
		Estimates: responses,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*estimatedomain.Response, error) {
	estimate, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, estimate)
	if err != nil {
		return nil, err
	}
	return toResponse(estimate, items), nil
}

func (s *Service) Update(ctx context.Context, req estimatedomain.UpdateRequest) (*estimatedomain.Response, error) {
	estimate, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if estimate.Status.IsTerminal() {
		return nil, estimatedomain.ErrInvalidTransition
	}

	validUntil := estimate.ValidUntil
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if validUntil.Before(estimate.IssuedAt) {
		return nil, estimatedomain.ErrInvalidValidUntil
	}
	notes := estimate.Notes
	if req.Notes != nil {
		notes = strings.TrimSpace(*req.Notes)
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, estimate.OrgID, billingdomain.DocumentKindEstimate, estimate.ID, req.Items)
		if err != nil {
			return err
		}
		// Totals keep the rate the estimate was issued with, so the stored
		// tax_rate column stays truthful after org default changes.
		totals := billingdomain.ComputeTotals(items, estimate.TaxRate)

		result := tx.Model(&estimatedomain.Estimate{}).
			Where("id = ? AND org_id = ? AND version = ?", estimate.ID, estimate.OrgID, req.Version).
			Updates(map[string]any{
				"valid_until": validUntil,
				"notes":       notes,
				"subtotal":    totals.Subtotal,
				"tax":         totals.Tax,
				"total":       totals.Total,
				"version":     req.Version + 1,
				"updated_at":  s.clock.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return estimatedomain.ErrVersionConflict
		}

		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			estimate.OrgID, billingdomain.DocumentKindEstimate, estimate.ID,
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

func (s *Service) SetStatus(ctx context.Context, req estimatedomain.SetStatusRequest) (*estimatedomain.Response, error) {
	if !req.Status.IsValid() {
		return nil, estimatedomain.ErrInvalidStatus
	}
	estimate, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !estimate.Status.CanTransitionTo(req.Status) {
		return nil, estimatedomain.ErrInvalidTransition
	}

	from := estimate.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&estimatedomain.Estimate{}).
			Where("id = ? AND org_id = ? AND version = ?", estimate.ID, estimate.OrgID, req.Version).
			Updates(map[string]any{
				"status":     req.Status,
				"version":    req.Version + 1,
				"updated_at": s.clock.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return estimatedomain.ErrVersionConflict
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: estimate.OrgID,
			Type:  events.EventEstimateStatusSet,
			Payload: events.DocumentPayload{
				DocumentID: estimate.ID.String(),
				Number:     estimate.Number,
				FromStatus: string(from),
				ToStatus:   string(req.Status),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("estimate.status:%s:%d", estimate.ID, req.Version+1),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, req.ID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	estimate, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			estimate.OrgID, billingdomain.DocumentKindEstimate, estimate.ID,
		); err != nil {
			return err
		}
		return s.estimaterepo.Delete(ctx, tx, "id = ? AND org_id = ?", estimate.ID, estimate.OrgID)
	})
}

// ConvertToInvoice creates a fresh invoice from the estimate and marks the
// estimate accepted inside one transaction. Either both writes commit or
// neither does; the historical create-then-update gap cannot occur.
func (s *Service) ConvertToInvoice(ctx context.Context, req estimatedomain.ConvertRequest) (*estimatedomain.ConvertResult, error) {
	estimate, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	switch estimate.Status {
	case estimatedomain.StatusAccepted:
		return nil, estimatedomain.ErrAlreadyConverted
	case estimatedomain.StatusRejected, estimatedomain.StatusExpired:
		return nil, estimatedomain.ErrNotConvertible
	}

	cfg, err := s.orgs.TaxConfigFor(ctx, estimate.OrgID)
	if err != nil {
		return nil, err
	}
	sourceItems, err := s.loadItems(ctx, estimate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:               s.genID.Generate(),
		OrgID:            estimate.OrgID,
		Number:           billingdomain.NewInvoiceNumber(),
		CustomerID:       estimate.CustomerID,
		CustomerName:     estimate.CustomerName,
		CustomerEmail:    estimate.CustomerEmail,
		CustomerAddress:  estimate.CustomerAddress,
		IssuedAt:         now,
		DueAt:            now.AddDate(0, 0, cfg.PaymentTermsDays),
		Status:           invoicedomain.StatusDraft,
		TaxRate:          estimate.TaxRate,
		Currency:         estimate.Currency,
		Notes:            annotateNotes(estimate.Notes, estimate.Number),
		SourceEstimateID: &estimate.ID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	copied := make([]billingdomain.LineItem, 0, len(sourceItems))
	for _, item := range sourceItems {
		clone := item
		clone.ID = s.genID.Generate()
		clone.DocumentKind = billingdomain.DocumentKindInvoice
		clone.DocumentID = invoice.ID
		clone.CreatedAt = now
		clone.Recompute()
		copied = append(copied, clone)
	}
	// The accepted estimate's rate carries over; a later change to the org
	// default must not alter the agreed total.
	totals := billingdomain.ComputeTotals(copied, estimate.TaxRate)
	invoice.Subtotal = totals.Subtotal
	invoice.Tax = totals.Tax
	invoice.Total = totals.Total

	convErr := func(step string, err error) error {
		return &estimatedomain.ConversionError{EstimateID: estimate.ID.String(), Step: step, Err: err}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoicerepo.Insert(ctx, tx, &invoice); err != nil {
			return convErr("create_invoice", err)
		}
		for i := range copied {
			if err := s.itemrepo.Insert(ctx, tx, &copied[i]); err != nil {
				return convErr("copy_items", err)
			}
		}
		result := tx.Model(&estimatedomain.Estimate{}).
			Where("id = ? AND org_id = ? AND version = ?", estimate.ID, estimate.OrgID, req.Version).
			Updates(map[string]any{
				"status":               estimatedomain.StatusAccepted,
				"converted_invoice_id": invoice.ID,
				"version":              req.Version + 1,
				"updated_at":           now,
			})
		if result.Error != nil {
			return convErr("mark_accepted", result.Error)
		}
		if result.RowsAffected == 0 {
			return estimatedomain.ErrVersionConflict
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: estimate.OrgID,
			Type:  events.EventEstimateConverted,
			Payload: events.DocumentPayload{
				DocumentID: invoice.ID.String(),
				Number:     invoice.Number,
				CustomerID: invoice.CustomerID.String(),
				SourceID:   estimate.ID.String(),
			}.ToMap(),
			DedupeKey: "estimate.converted:" + estimate.ID.String(),
		}); err != nil {
			return convErr("publish_event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("estimate converted",
		zap.String("estimate_id", estimate.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.Number),
	)

	updated, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &estimatedomain.ConvertResult{
		Estimate:  *updated,
		InvoiceID: invoice.ID.String(),
		InvoiceNo: invoice.Number,
	}, nil
}

// annotateNotes appends the conversion back-reference so the invoice keeps a
// human-readable pointer to its source estimate.
func annotateNotes(notes, estimateNumber string) string {
	ref := "Converted from estimate " + estimateNumber
	if notes == "" {
		return ref
	}
	return notes + "\n" + ref
}

func (s *Service) load(ctx context.Context, id string) (*estimatedomain.Estimate, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, estimatedomain.ErrInvalidOrganization
	}
	estimateID, err := estimatedomain.ParseID(id)
	if err != nil {
		return nil, estimatedomain.ErrInvalidID
	}
	estimate, err := s.estimaterepo.FindOne(ctx, nil, "id = ? AND org_id = ?", estimateID, orgID)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, estimatedomain.ErrNotFound
	}
	return estimate, nil
}

func (s *Service) loadItems(ctx context.Context, estimate *estimatedomain.Estimate) ([]billingdomain.LineItem, error) {
	return s.itemrepo.FindAll(ctx, nil,
		"org_id = ? AND document_kind = ? AND document_id = ?",
		estimate.OrgID, billingdomain.DocumentKindEstimate, estimate.ID,
	)
}

func toResponse(estimate *estimatedomain.Estimate, items []billingdomain.LineItem) *estimatedomain.Response {
	resp := &estimatedomain.Response{
		ID:              estimate.ID.String(),
		Number:          estimate.Number,
		CustomerID:      estimate.CustomerID.String(),
		CustomerName:    estimate.CustomerName,
		CustomerEmail:   estimate.CustomerEmail,
		CustomerAddress: estimate.CustomerAddress,
		IssuedAt:        estimate.IssuedAt,
		ValidUntil:      estimate.ValidUntil,
		Status:          estimate.Status,
		TaxRate:         estimate.TaxRate,
		Subtotal:        estimate.Subtotal,
		Tax:             estimate.Tax,
		Total:           estimate.Total,
		Currency:        estimate.Currency,
		Notes:           estimate.Notes,
		Version:         estimate.Version,
		Items:           items,
		CreatedAt:       estimate.CreatedAt,
		UpdatedAt:       estimate.UpdatedAt,
	}
	if estimate.ConvertedInvoiceID != nil {
		resp.ConvertedInvoice = estimate.ConvertedInvoiceID.String()
	}
	return resp
}
