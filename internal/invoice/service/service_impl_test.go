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
	"github.com/invozo/invozo/internal/events"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	ledgerdomain "github.com/invozo/invozo/internal/ledger/domain"
	ledgerservice "github.com/invozo/invozo/internal/ledger/service"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/invozo/invozo/pkg/db/pagination"
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
	svc      invoicedomain.Service
	db       *gorm.DB
	ctx      context.Context
	orgID    snowflake.ID
	customer customerdomain.Customer
	products []productdomain.Product
	orgs     *stubOrgService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:invoicesvc_%s?mode=memory&cache=shared", snowflakeNode(t).Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&invoicedomain.Invoice{},
		&billingdomain.LineItem{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
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

	node := snowflakeNode(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	orgID := node.Generate()
	customer := customerdomain.Customer{
		ID:      node.Generate(),
		OrgID:   orgID,
		Name:    "Acme Ltd",
		Email:   "ap@acme.test",
		Address: "1 Main St",
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	products := []productdomain.Product{
		{ID: node.Generate(), OrgID: orgID, Name: "Consulting", UnitPrice: decimal.NewFromInt(800), Active: true},
		{ID: node.Generate(), OrgID: orgID, Name: "Support", UnitPrice: decimal.NewFromInt(300), Active: true},
	}
	for i := range products {
		if err := db.Create(&products[i]).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	orgs := &stubOrgService{cfg: organizationdomain.TaxConfig{
		DefaultTaxRate:   decimal.NewFromInt(18),
		Currency:         "USD",
		PaymentTermsDays: 14,
	}}
	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.FixedClock{Instant: now},
		GenID:  node,
		Orgs:   orgs,
		Items:  billingservice.NewItemBuilder(billingservice.ItemBuilderParam{DB: db, GenID: node}),
		Outbox: events.NewOutbox(db, node),
		Ledger: ledgerservice.NewService(ledgerservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node}),
	})

	return &fixture{
		svc:      svc,
		db:       db,
		ctx:      orgcontext.WithOrgID(context.Background(), orgID),
		orgID:    orgID,
		customer: customer,
		products: products,
		orgs:     orgs,
		now:      now,
	}
}

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

func (f *fixture) createInvoice(t *testing.T) *invoicedomain.Response {
	t.Helper()
	resp, err := f.svc.Create(f.ctx, invoicedomain.CreateRequest{
		CustomerID: f.customer.ID.String(),
		Items: []invoicedomain.LineItemInput{
			{ProductID: f.products[0].ID.String(), Quantity: 2},
			{ProductID: f.products[1].ID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return resp
}

func TestCreateInvoiceComputesTotalsAndDueDate(t *testing.T) {
	f := newFixture(t)
	resp := f.createInvoice(t)

	if resp.Status != invoicedomain.StatusDraft {
		t.Fatalf("status = %s, want draft", resp.Status)
	}
	if resp.Version != 1 {
		t.Fatalf("version = %d, want 1", resp.Version)
	}
	if len(resp.Number) != len("INV-0000") || resp.Number[:4] != "INV-" {
		t.Fatalf("number = %q", resp.Number)
	}
	if !resp.Subtotal.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("subtotal = %s, want 1900", resp.Subtotal)
	}
	if !resp.Tax.Equal(decimal.NewFromInt(342)) {
		t.Errorf("tax = %s, want 342", resp.Tax)
	}
	if !resp.Total.Equal(decimal.NewFromInt(2242)) {
		t.Errorf("total = %s, want 2242", resp.Total)
	}
	if resp.Currency != "USD" {
		t.Errorf("currency = %s", resp.Currency)
	}
	if resp.CustomerName != "Acme Ltd" {
		t.Errorf("customer snapshot = %q", resp.CustomerName)
	}
	wantDue := f.now.AddDate(0, 0, 14)
	if !resp.DueAt.Equal(wantDue) {
		t.Errorf("due_at = %s, want %s", resp.DueAt, wantDue)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}

	var eventCount int64
	if err := f.db.Table("outbox_events").Where("org_id = ? AND event_type = ?", f.orgID, events.EventInvoiceCreated).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Errorf("outbox events = %d, want 1", eventCount)
	}
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, invoicedomain.CreateRequest{
		CustomerID: snowflakeNode(t).Generate().String(),
		Items:      []invoicedomain.LineItemInput{{ProductID: f.products[0].ID.String(), Quantity: 1}},
	})
	if !errors.Is(err, invoicedomain.ErrInvalidCustomer) {
		t.Fatalf("err = %v, want ErrInvalidCustomer", err)
	}
}

func TestCreateInvoiceRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, invoicedomain.CreateRequest{
		CustomerID: f.customer.ID.String(),
		Items:      []invoicedomain.LineItemInput{{ProductID: f.products[0].ID.String(), Quantity: 0}},
	})
	if !errors.Is(err, billingdomain.ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}

	var count int64
	if err := f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("invoice persisted despite rejected item")
	}
}

func TestUpdateReplacesItemsAndBumpsVersion(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	updated, err := f.svc.Update(f.ctx, invoicedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version,
		Items: []invoicedomain.LineItemInput{
			{ProductID: f.products[1].ID.String(), Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
	if !updated.Subtotal.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("subtotal = %s, want 1500", updated.Subtotal)
	}
	if !updated.Tax.Equal(decimal.NewFromInt(270)) {
		t.Errorf("tax = %s, want 270", updated.Tax)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(updated.Items))
	}

	var itemCount int64
	if err := f.db.Model(&billingdomain.LineItem{}).Where("document_id = ?", created.ID).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 1 {
		t.Errorf("stored items = %d, want 1", itemCount)
	}
}

// An invoice keeps the tax rate it was issued with. Changing the org default
// between edits must not silently reprice open drafts.
func TestUpdateKeepsIssuedTaxRate(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	f.orgs.cfg.DefaultTaxRate = decimal.NewFromInt(10)

	updated, err := f.svc.Update(f.ctx, invoicedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version,
		Items: []invoicedomain.LineItemInput{
			{ProductID: f.products[1].ID.String(), Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !updated.Subtotal.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("subtotal = %s, want 1500", updated.Subtotal)
	}
	if !updated.Tax.Equal(decimal.NewFromInt(270)) {
		t.Errorf("tax = %s, want 270 (18%% of 1500)", updated.Tax)
	}
	if !updated.Total.Equal(decimal.NewFromInt(1770)) {
		t.Errorf("total = %s, want 1770", updated.Total)
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	if _, err := f.svc.Update(f.ctx, invoicedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version,
		Items:   []invoicedomain.LineItemInput{{ProductID: f.products[0].ID.String(), Quantity: 1}},
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	_, err := f.svc.Update(f.ctx, invoicedomain.UpdateRequest{
		ID:      created.ID,
		Version: created.Version, // stale
		Items:   []invoicedomain.LineItemInput{{ProductID: f.products[1].ID.String(), Quantity: 1}},
	})
	if !errors.Is(err, invoicedomain.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
}

func TestSetStatusFollowsTransitionTable(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	if _, err := f.svc.SetStatus(f.ctx, invoicedomain.SetStatusRequest{
		ID: created.ID, Version: 1, Status: invoicedomain.StatusPaid,
	}); !errors.Is(err, invoicedomain.ErrInvalidTransition) {
		t.Fatalf("draft->paid err = %v, want ErrInvalidTransition", err)
	}

	sent, err := f.svc.SetStatus(f.ctx, invoicedomain.SetStatusRequest{
		ID: created.ID, Version: 1, Status: invoicedomain.StatusSent,
	})
	if err != nil {
		t.Fatalf("draft->sent: %v", err)
	}
	pending, err := f.svc.SetStatus(f.ctx, invoicedomain.SetStatusRequest{
		ID: created.ID, Version: sent.Version, Status: invoicedomain.StatusPending,
	})
	if err != nil {
		t.Fatalf("sent->pending: %v", err)
	}
	paid, err := f.svc.SetStatus(f.ctx, invoicedomain.SetStatusRequest{
		ID: created.ID, Version: pending.Version, Status: invoicedomain.StatusPaid,
	})
	if err != nil {
		t.Fatalf("pending->paid: %v", err)
	}

	var entries []ledgerdomain.LedgerEntry
	if err := f.db.Find(&entries, "org_id = ? AND source_type = ?", f.orgID, ledgerdomain.SourceTypeInvoice).Error; err != nil {
		t.Fatalf("load ledger entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	var lines []ledgerdomain.LedgerEntryLine
	if err := f.db.Find(&lines, "ledger_entry_id = ?", entries[0].ID).Error; err != nil {
		t.Fatalf("load ledger lines: %v", err)
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		t.Errorf("paid posting unbalanced: %v", err)
	}

	if _, err := f.svc.Update(f.ctx, invoicedomain.UpdateRequest{
		ID: created.ID, Version: paid.Version,
		Items: []invoicedomain.LineItemInput{{ProductID: f.products[0].ID.String(), Quantity: 1}},
	}); !errors.Is(err, invoicedomain.ErrInvalidTransition) {
		t.Fatalf("update after paid err = %v, want ErrInvalidTransition", err)
	}
}

func TestSetStatusInvalidValue(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	_, err := f.svc.SetStatus(f.ctx, invoicedomain.SetStatusRequest{
		ID: created.ID, Version: 1, Status: invoicedomain.InvoiceStatus("archived"),
	})
	if !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestDeleteRemovesInvoiceAndItems(t *testing.T) {
	f := newFixture(t)
	created := f.createInvoice(t)

	if err := f.svc.Delete(f.ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.GetByID(f.ctx, created.ID); !errors.Is(err, invoicedomain.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	var itemCount int64
	if err := f.db.Model(&billingdomain.LineItem{}).Where("document_id = ?", created.ID).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 0 {
		t.Errorf("orphaned items = %d", itemCount)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createInvoice(t)
	}

	page, err := f.svc.List(f.ctx, invoicedomain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Invoices) != 3 {
		t.Fatalf("invoices = %d, want 3", len(page.Invoices))
	}

	page, err = f.svc.List(f.ctx, invoicedomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page.Invoices) != 2 || page.NextPageToken == "" {
		t.Fatalf("page 1: got %d invoices, token %q", len(page.Invoices), page.NextPageToken)
	}

	page2, err := f.svc.List(f.ctx, invoicedomain.ListRequest{
		Pagination: pagination.Pagination{PageToken: page.NextPageToken, PageSize: 2},
	})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2.Invoices) != 1 || page2.NextPageToken != "" {
		t.Fatalf("page 2: got %d invoices, token %q", len(page2.Invoices), page2.NextPageToken)
	}

	filtered, err := f.svc.List(f.ctx, invoicedomain.ListRequest{Status: "paid"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered.Invoices) != 0 {
		t.Fatalf("paid invoices = %d, want 0", len(filtered.Invoices))
	}
}

func TestListIsolatesOrganizations(t *testing.T) {
	f := newFixture(t)
	f.createInvoice(t)

	otherCtx := orgcontext.WithOrgID(context.Background(), snowflakeNode(t).Generate())
	page, err := f.svc.List(otherCtx, invoicedomain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Invoices) != 0 {
		t.Fatalf("cross-tenant leak: %d invoices", len(page.Invoices))
	}
}
