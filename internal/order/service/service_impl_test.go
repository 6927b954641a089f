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
	orderdomain "github.com/invozo/invozo/internal/order/domain"
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

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(3)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

func newService(t *testing.T) (orderdomain.Service, context.Context, customerdomain.Customer, productdomain.Product) {
	t.Helper()

	node := snowflakeNode(t)
	dsn := fmt.Sprintf("file:ordersvc_%s?mode=memory&cache=shared", node.Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&orderdomain.Order{},
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

	orgID := node.Generate()
	customer := customerdomain.Customer{ID: node.Generate(), OrgID: orgID, Name: "Initech"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	product := productdomain.Product{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      "Widget",
		UnitPrice: decimal.NewFromInt(250),
		Active:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.FixedClock{Instant: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
		GenID: node,
		Orgs: &stubOrgService{cfg: organizationdomain.TaxConfig{
			DefaultTaxRate: decimal.NewFromInt(20),
			Currency:       "EUR",
		}},
		Items:  billingservice.NewItemBuilder(billingservice.ItemBuilderParam{DB: db, GenID: node}),
		Outbox: events.NewOutbox(db, node),
	})
	return svc, orgcontext.WithOrgID(context.Background(), orgID), customer, product
}

func TestCreateOrder(t *testing.T) {
	svc, ctx, customer, product := newService(t)

	resp, err := svc.Create(ctx, orderdomain.CreateRequest{
		CustomerID: customer.ID.String(),
		Items:      []orderdomain.LineItemInput{{ProductID: product.ID.String(), Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.Status != orderdomain.StatusPending {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if len(resp.Number) != len("ORD-000000") || resp.Number[:4] != "ORD-" {
		t.Errorf("number = %q", resp.Number)
	}
	if !resp.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("subtotal = %s, want 1000", resp.Subtotal)
	}
	if !resp.Total.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("total = %s, want 1200", resp.Total)
	}
	if resp.Currency != "EUR" {
		t.Errorf("currency = %s", resp.Currency)
	}
}

func TestOrderStatusProgression(t *testing.T) {
	svc, ctx, customer, product := newService(t)

	created, err := svc.Create(ctx, orderdomain.CreateRequest{
		CustomerID: customer.ID.String(),
		Items:      []orderdomain.LineItemInput{{ProductID: product.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := svc.SetStatus(ctx, orderdomain.SetStatusRequest{
		ID: created.ID, Version: 1, Status: orderdomain.StatusPaid,
	}); !errors.Is(err, orderdomain.ErrInvalidTransition) {
		t.Fatalf("pending->paid err = %v, want ErrInvalidTransition", err)
	}

	confirmed, err := svc.SetStatus(ctx, orderdomain.SetStatusRequest{
		ID: created.ID, Version: 1, Status: orderdomain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("pending->confirmed: %v", err)
	}

	cancelled, err := svc.SetStatus(ctx, orderdomain.SetStatusRequest{
		ID: created.ID, Version: confirmed.Version, Status: orderdomain.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("confirmed->cancelled: %v", err)
	}

	if _, err := svc.SetStatus(ctx, orderdomain.SetStatusRequest{
		ID: created.ID, Version: cancelled.Version, Status: orderdomain.StatusPending,
	}); !errors.Is(err, orderdomain.ErrInvalidTransition) {
		t.Fatalf("cancelled->pending err = %v, want ErrInvalidTransition", err)
	}
}
