package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

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
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubOrgService struct {
	cfg organizationdomain.TaxConfig
}

func (s *stubOrgService) Create(context.Context, organizationdomain.CreateRequest) (*organizationdomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrgService) Get(context.Context) (*organizationdomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrgService) Update(context.Context, organizationdomain.UpdateRequest) (*organizationdomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOrgService) TaxConfigFor(context.Context, snowflake.ID) (organizationdomain.TaxConfig, error) {
	return s.cfg, nil
}

type fixture struct {
	svc      estimatedomain.Service
	db       *gorm.DB
	ctx      context.Context
	orgID    snowflake.ID
	customer customerdomain.Customer
	product  productdomain.Product
	orgs     *stubOrgService
	now      time.Time
}

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(2)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	node := snowflakeNode(t)
	dsn := fmt.Sprintf("file:estimatesvc_%s?mode=memory&cache=shared", node.Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&estimatedomain.Estimate{},
		&invoicedomain.Invoice{},
		&billingdomain.LineItem{},
		&customerdomain.Customer{},
		&productdomain.Product{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`CREATE TABLE outbox_events (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		dedupe_key TEXT,
		published BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create outbox table: %v", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX ux_outbox_dedupe ON outbox_events (org_id, dedupe_key)`).Error; err != nil {
		t.Fatalf("create outbox index: %v", err)
	}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	orgID := node.Generate()
	customer := customerdomain.Customer{
		ID:      node.Generate(),
		OrgID:   orgID,
		Name:    "Globex Corp",
		Email:   "billing@globex.test",
		Address: "9 Side St",
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	product := productdomain.Product{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      "Audit",
		UnitPrice: decimal.NewFromInt(1500),
		Active:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	orgs := &stubOrgService{cfg: organizationdomain.TaxConfig{
		DefaultTaxRate:   decimal.NewFromInt(10),
		Currency:         "USD",
		PaymentTermsDays: 0,
	}}
	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.FixedClock{Instant: now},
		GenID:  node,
		Orgs:   orgs,
		Items:  billingservice.NewItemBuilder(billingservice.ItemBuilderParam{DB: db, GenID: node}),
		Outbox: events.NewOutbox(db, node),
	})

	return &fixture{
		svc:      svc,
		db:       db,
		ctx:      orgcontext.WithOrgID(context.Background(), orgID),
		orgID:    orgID,
		customer: customer,
		product:  product,
		orgs:     orgs,
		now:      now,
	}
}

func (f *fixture) createEstimate(t *testing.T) *estimatedomain.Response {
	t.Helper()
	resp, err := f.svc.Create(f.ctx, estimatedomain.CreateRequest{
		CustomerID: f.customer.ID.String(),
		Notes:      "net 0",
		Items: []estimatedomain.LineItemInput{
			{ProductID: f.product.ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create estimate: %v", err)
	}
	return resp
}

func TestCreateEstimateTotalsAndValidity(t *testing.T) {
	f := newFixture(t)
	resp := f.createEstimate(t)

	if resp.Status != estimatedomain.StatusDraft {
		t.Fatalf("status = %s, want draft", resp.Status)
	}
	if resp.Number[:4] != "EST-" {
		t.Fatalf("number = %q", resp.Number)
	}
	if !resp.Subtotal.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("subtotal = %s, want 1500", resp.Subtotal)
	}
	if !resp.Tax.Equal(decimal.NewFromInt(150)) {
		t.Errorf("tax = %s, want 150", resp.Tax)
	}
	if !resp.Total.Equal(decimal.NewFromInt(1650)) {
		t.Errorf("total = %s, want 1650", resp.Total)
	}
	wantValid := f.now.AddDate(0, 0, defaultValidityDays)
	if !resp.ValidUntil.Equal(wantValid) {
		t.Errorf("valid_until = %s, want %s", resp.ValidUntil, wantValid)
	}
}

func TestConvertToInvoiceFidelity(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	result, err := f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{
		ID:      created.ID,
		Version: created.Version,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if result.Estimate.Status != estimatedomain.StatusAccepted {
		t.Errorf("estimate status = %s, want accepted", result.Estimate.Status)
	}
	if result.Estimate.ConvertedInvoice != result.InvoiceID {
		t.Errorf("back-reference = %q, want %q", result.Estimate.ConvertedInvoice, result.InvoiceID)
	}
	if result.InvoiceNo[:4] != "INV-" {
		t.Errorf("invoice number = %q", result.InvoiceNo)
	}

	var invoice invoicedomain.Invoice
	if err := f.db.First(&invoice, "number = ?", result.InvoiceNo).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if !invoice.Subtotal.Equal(created.Subtotal) {
		t.Errorf("invoice subtotal = %s, want %s", invoice.Subtotal, created.Subtotal)
	}
	if !invoice.Total.Equal(invoice.Subtotal.Add(invoice.Tax)) {
		t.Errorf("total %s != subtotal %s + tax %s", invoice.Total, invoice.Subtotal, invoice.Tax)
	}
	if invoice.SourceEstimateID == nil || invoice.SourceEstimateID.String() != created.ID {
		t.Errorf("source estimate = %v, want %s", invoice.SourceEstimateID, created.ID)
	}
	if invoice.CustomerName != "Globex Corp" {
		t.Errorf("customer snapshot = %q", invoice.CustomerName)
	}
	if invoice.Notes != "net 0\nConverted from estimate "+created.Number {
		t.Errorf("notes = %q", invoice.Notes)
	}
	if !invoice.DueAt.Equal(invoice.IssuedAt) {
		t.Errorf("zero payment terms: due_at %s != issued_at %s", invoice.DueAt, invoice.IssuedAt)
	}

	var itemCount int64
	if err := f.db.Model(&billingdomain.LineItem{}).
		Where("document_kind = ? AND document_id = ?", billingdomain.DocumentKindInvoice, invoice.ID).
		Count(&itemCount).Error; err != nil {
		t.Fatalf("count invoice items: %v", err)
	}
	if itemCount != 1 {
		t.Errorf("invoice items = %d, want 1", itemCount)
	}
}

// The rate an estimate was issued with is part of the agreed price. Raising
// the org default between acceptance and conversion must not change the
// invoice's totals.
func TestConvertKeepsIssuedTaxRate(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	f.orgs.cfg.DefaultTaxRate = decimal.NewFromInt(18)

	result, err := f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{
		ID:      created.ID,
		Version: created.Version,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	var invoice invoicedomain.Invoice
	if err := f.db.First(&invoice, "number = ?", result.InvoiceNo).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if !invoice.TaxRate.Equal(decimal.NewFromInt(10)) {
		t.Errorf("invoice tax_rate = %s, want 10", invoice.TaxRate)
	}
	if !invoice.Tax.Equal(decimal.NewFromInt(150)) {
		t.Errorf("invoice tax = %s, want 150", invoice.Tax)
	}
	if !invoice.Total.Equal(decimal.NewFromInt(1650)) {
		t.Errorf("invoice total = %s, want 1650", invoice.Total)
	}
}

// Editing a draft recomputes totals with the estimate's stored rate, not the
// org default at edit time.
func TestUpdateKeepsIssuedTaxRate(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	f.orgs.cfg.DefaultTaxRate = decimal.NewFromInt(18)

	updated, err := f.svc.Update(f.ctx, estimatedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version,
		Items: []estimatedomain.LineItemInput{
			{ProductID: f.product.ID.String(), Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !updated.Subtotal.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("subtotal = %s, want 3000", updated.Subtotal)
	}
	if !updated.Tax.Equal(decimal.NewFromInt(300)) {
		t.Errorf("tax = %s, want 300", updated.Tax)
	}
	if !updated.Total.Equal(decimal.NewFromInt(3300)) {
		t.Errorf("total = %s, want 3300", updated.Total)
	}
}

func TestConvertTwiceRejected(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	first, err := f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{ID: created.ID, Version: created.Version})
	if err != nil {
		t.Fatalf("first convert: %v", err)
	}
	_, err = f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{ID: created.ID, Version: first.Estimate.Version})
	if !errors.Is(err, estimatedomain.ErrAlreadyConverted) {
		t.Fatalf("err = %v, want ErrAlreadyConverted", err)
	}

	var invoiceCount int64
	if err := f.db.Model(&invoicedomain.Invoice{}).Count(&invoiceCount).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoiceCount != 1 {
		t.Errorf("invoices = %d, want 1", invoiceCount)
	}
}

func TestConvertRejectedEstimate(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	sent, err := f.svc.SetStatus(f.ctx, estimatedomain.SetStatusRequest{
		ID: created.ID, Version: created.Version, Status: estimatedomain.StatusSent,
	})
	if err != nil {
		t.Fatalf("draft->sent: %v", err)
	}
	rejected, err := f.svc.SetStatus(f.ctx, estimatedomain.SetStatusRequest{
		ID: created.ID, Version: sent.Version, Status: estimatedomain.StatusRejected,
	})
	if err != nil {
		t.Fatalf("sent->rejected: %v", err)
	}

	_, err = f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{ID: created.ID, Version: rejected.Version})
	if !errors.Is(err, estimatedomain.ErrNotConvertible) {
		t.Fatalf("err = %v, want ErrNotConvertible", err)
	}
}

// A failure inside the conversion transaction must leave the estimate
// untouched: no accepted status, no dangling invoice.
func TestConvertRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	if err := f.db.Migrator().DropTable(&invoicedomain.Invoice{}); err != nil {
		t.Fatalf("drop invoices table: %v", err)
	}

	_, err := f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{ID: created.ID, Version: created.Version})
	if err == nil {
		t.Fatal("convert succeeded without invoices table")
	}
	var convErr *estimatedomain.ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %T, want *ConversionError", err)
	}
	if convErr.Step != "create_invoice" {
		t.Errorf("failed step = %q, want create_invoice", convErr.Step)
	}

	after, err := f.svc.GetByID(f.ctx, created.ID)
	if err != nil {
		t.Fatalf("reload estimate: %v", err)
	}
	if after.Status != estimatedomain.StatusDraft {
		t.Errorf("estimate status = %s, want draft (unchanged)", after.Status)
	}
	if after.Version != created.Version {
		t.Errorf("estimate version = %d, want %d (unchanged)", after.Version, created.Version)
	}
	if after.ConvertedInvoice != "" {
		t.Errorf("back-reference set despite rollback: %q", after.ConvertedInvoice)
	}
}

func TestConvertStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	created := f.createEstimate(t)

	note := "updated"
	if _, err := f.svc.Update(f.ctx, estimatedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version,
		Notes:   &note,
		Items:   []estimatedomain.LineItemInput{{ProductID: f.product.ID.String(), Quantity: 1}},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := f.svc.ConvertToInvoice(f.ctx, estimatedomain.ConvertRequest{ID: created.ID, Version: created.Version})
	if !errors.Is(err, estimatedomain.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	var invoiceCount int64
	if err := f.db.Model(&invoicedomain.Invoice{}).Count(&invoiceCount).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoiceCount != 0 {
		t.Errorf("invoices = %d, want 0 after conflicted convert", invoiceCount)
	}
}
