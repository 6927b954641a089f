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
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	ledgerdomain "github.com/invozo/invozo/internal/ledger/domain"
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
	ledger ledgerdomain.Service

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
	Ledger ledgerdomain.Service
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		clock: p.Clock,

		genID:  p.GenID,
		orgs:   p.Orgs,
		items:  p.Items,
		outbox: p.Outbox,
		ledger: p.Ledger,

		invoicerepo:  repository.ProvideStore[invoicedomain.Invoice](p.DB),
		itemrepo:     repository.ProvideStore[billingdomain.LineItem](p.DB),
		customerrepo: repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Response, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidOrganization
	}

	customerID, err := customerdomain.ParseID(req.CustomerID)
	if err != nil {
		return nil, invoicedomain.ErrInvalidCustomer
	}
	customer, err := s.customerrepo.FindOne(ctx, nil, "id = ? AND org_id = ?", customerID, orgID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, invoicedomain.ErrInvalidCustomer
	}

	cfg, err := s.orgs.TaxConfigFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.clock.Now()
	if req.IssuedAt != nil {
		issuedAt = req.IssuedAt.UTC()
	}
	dueAt := issuedAt.AddDate(0, 0, cfg.PaymentTermsDays)
	if req.DueAt != nil {
		dueAt = req.DueAt.UTC()
	}
	if dueAt.Before(issuedAt) {
		return nil, invoicedomain.ErrInvalidDueDate
	}

	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Number:          billingdomain.NewInvoiceNumber(),
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerAddress: customer.Address,
		IssuedAt:        issuedAt,
		DueAt:           dueAt,
		Status:          invoicedomain.StatusDraft,
		TaxRate:         cfg.DefaultTaxRate,
		Currency:        cfg.Currency,
		Notes:           strings.TrimSpace(req.Notes),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, orgID, billingdomain.DocumentKindInvoice, invoice.ID, req.Items)
		if err != nil {
			return err
		}
		totals := billingdomain.ComputeTotals(items, cfg.DefaultTaxRate)
		invoice.Subtotal = totals.Subtotal
		invoice.Tax = totals.Tax
		invoice.Total = totals.Total

		if err := s.invoicerepo.Insert(ctx, tx, &invoice); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		for i := range items {
			if err := s.itemrepo.Insert(ctx, tx, &items[i]); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: orgID,
			Type:  events.EventInvoiceCreated,
			Payload: events.DocumentPayload{
				DocumentID: invoice.ID.String(),
				Number:     invoice.Number,
				CustomerID: invoice.CustomerID.String(),
			}.ToMap(),
			DedupeKey: "invoice.created:" + invoice.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("org_id", orgID.String()),
	)
	return toResponse(&invoice, items), nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidOrganization
	}

	afterID, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return invoicedomain.ListResponse{}, err
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
		if !invoicedomain.InvoiceStatus(status).IsValid() {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", status)
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := customerdomain.ParseID(raw)
		if err != nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidCustomer
		}
		query = query.Where("customer_id = ?", customerID)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return invoicedomain.ListResponse{}, err
	}

	var next string
	if len(invoices) > limit {
		invoices = invoices[:limit]
		next = pagination.EncodeToken(invoices[limit-1].ID)
	}

	responses := make([]invoicedomain.Response, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *toResponse(&invoices[i], nil))
	}
	return invoicedomain.ListResponse{
		PageInfo: pagination.PageInfo{NextPageToken: next},
		Invoices: responses,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*invoicedomain.Response, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, invoice)
	if err != nil {
		return nil, err
	}
	return toResponse(invoice, items), nil
}

// Update replaces the item list and mutable fields, recomputes totals, and
// bumps Version. A stale Version loses.
func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateRequest) (*invoicedomain.Response, error) {
	invoice, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if invoice.Status.IsTerminal() {
		return nil, invoicedomain.ErrInvalidTransition
	}

	dueAt := invoice.DueAt
	if req.DueAt != nil {
		dueAt = req.DueAt.UTC()
	}
	if dueAt.Before(invoice.IssuedAt) {
		return nil, invoicedomain.ErrInvalidDueDate
	}
	notes := invoice.Notes
	if req.Notes != nil {
		notes = strings.TrimSpace(*req.Notes)
	}

	var items []billingdomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err = s.items.Build(ctx, tx, invoice.OrgID, billingdomain.DocumentKindInvoice, invoice.ID, req.Items)
		if err != nil {
			return err
		}
		// Totals keep the rate the invoice was issued with, so the stored
		// tax_rate column stays truthful after org default changes.
		totals := billingdomain.ComputeTotals(items, invoice.TaxRate)

		result := tx.Model(&invoicedomain.Invoice{}).
			Where("id = ? AND org_id = ? AND version = ?", invoice.ID, invoice.OrgID, req.Version).
			Updates(map[string]any{
				"due_at":     dueAt,
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
			return invoicedomain.ErrVersionConflict
		}

		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			invoice.OrgID, billingdomain.DocumentKindInvoice, invoice.ID,
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

// SetStatus applies one transition from the invoice status table.
func (s *Service) SetStatus(ctx context.Context, req invoicedomain.SetStatusRequest) (*invoicedomain.Response, error) {
	if !req.Status.IsValid() {
		return nil, invoicedomain.ErrInvalidStatus
	}
	invoice, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransitionTo(req.Status) {
		return nil, invoicedomain.ErrInvalidTransition
	}

	from := invoice.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&invoicedomain.Invoice{}).
			Where("id = ? AND org_id = ? AND version = ?", invoice.ID, invoice.OrgID, req.Version).
			Updates(map[string]any{
				"status":     req.Status,
				"version":    req.Version + 1,
				"updated_at": s.clock.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrVersionConflict
		}
		if req.Status == invoicedomain.StatusPaid {
			if err := s.postPaidEntry(ctx, tx, invoice); err != nil {
				return err
			}
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: invoice.OrgID,
			Type:  events.EventInvoiceStatusSet,
			Payload: events.DocumentPayload{
				DocumentID: invoice.ID.String(),
				Number:     invoice.Number,
				FromStatus: string(from),
				ToStatus:   string(req.Status),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("invoice.status:%s:%d", invoice.ID, req.Version+1),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)),
	)
	return s.GetByID(ctx, req.ID)
}

// postPaidEntry records payment receipt as a balanced posting: cash takes
// the full amount, revenue and tax payable split it.
func (s *Service) postPaidEntry(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	if invoice.Total.IsZero() {
		return nil
	}
	cashID, err := s.ledger.EnsureAccount(ctx, tx, invoice.OrgID, ledgerdomain.AccountCodeCash, "Cash")
	if err != nil {
		return err
	}
	revenueID, err := s.ledger.EnsureAccount(ctx, tx, invoice.OrgID, ledgerdomain.AccountCodeRevenue, "Revenue")
	if err != nil {
		return err
	}
	lines := []ledgerdomain.LedgerEntryLine{
		{AccountID: cashID, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: invoice.Total},
		{AccountID: revenueID, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: invoice.Subtotal},
	}
	if !invoice.Tax.IsZero() {
		taxID, err := s.ledger.EnsureAccount(ctx, tx, invoice.OrgID, ledgerdomain.AccountCodeTaxPayable, "Tax Payable")
		if err != nil {
			return err
		}
		lines = append(lines, ledgerdomain.LedgerEntryLine{
			AccountID: taxID, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: invoice.Tax,
		})
	}
	return s.ledger.CreateEntry(ctx, tx, ledgerdomain.NewEntry{
		OrgID:      invoice.OrgID,
		SourceType: ledgerdomain.SourceTypeInvoice,
		SourceID:   invoice.ID,
		Currency:   invoice.Currency,
		OccurredAt: s.clock.Now(),
		Lines:      lines,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.itemrepo.Delete(ctx, tx,
			"org_id = ? AND document_kind = ? AND document_id = ?",
			invoice.OrgID, billingdomain.DocumentKindInvoice, invoice.ID,
		); err != nil {
			return err
		}
		if err := s.invoicerepo.Delete(ctx, tx, "id = ? AND org_id = ?", invoice.ID, invoice.OrgID); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: invoice.OrgID,
			Type:  events.EventInvoiceDeleted,
			Payload: events.DocumentPayload{
				DocumentID: invoice.ID.String(),
				Number:     invoice.Number,
			}.ToMap(),
			DedupeKey: "invoice.deleted:" + invoice.ID.String(),
		})
	})
}

func (s *Service) load(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	orgID, ok := orgcontext.OrgID(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidOrganization
	}
	invoiceID, err := invoicedomain.ParseID(id)
	if err != nil {
		return nil, invoicedomain.ErrInvalidID
	}
	invoice, err := s.invoicerepo.FindOne(ctx, nil, "id = ? AND org_id = ?", invoiceID, orgID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) loadItems(ctx context.Context, invoice *invoicedomain.Invoice) ([]billingdomain.LineItem, error) {
	return s.itemrepo.FindAll(ctx, nil,
		"org_id = ? AND document_kind = ? AND document_id = ?",
		invoice.OrgID, billingdomain.DocumentKindInvoice, invoice.ID,
	)
}

func toResponse(invoice *invoicedomain.Invoice, items []billingdomain.LineItem) *invoicedomain.Response {
	resp := &invoicedomain.Response{
		ID:              invoice.ID.String(),
		Number:          invoice.Number,
		CustomerID:      invoice.CustomerID.String(),
		CustomerName:    invoice.CustomerName,
		CustomerEmail:   invoice.CustomerEmail,
		CustomerAddress: invoice.CustomerAddress,
		IssuedAt:        invoice.IssuedAt,
		DueAt:           invoice.DueAt,
		Status:          invoice.Status,
		TaxRate:         invoice.TaxRate,
		Subtotal:        invoice.Subtotal,
		Tax:             invoice.Tax,
		Total:           invoice.Total,
		Currency:        invoice.Currency,
		Notes:           invoice.Notes,
		Version:         invoice.Version,
		Items:           items,
		CreatedAt:       invoice.CreatedAt,
		UpdatedAt:       invoice.UpdatedAt,
	}
	if invoice.SourceEstimateID != nil {
		resp.SourceEstimate = invoice.SourceEstimateID.String()
	}
	return resp
}
