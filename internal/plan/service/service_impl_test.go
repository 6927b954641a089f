package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(5)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	ctx   context.Context
	orgID snowflake.ID
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node := snowflakeNode(t)

	dsn := fmt.Sprintf("file:plan_%s?mode=memory&cache=shared", node.Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organization{},
		&plandomain.Plan{},
		&invoicedomain.Invoice{},
		&estimatedomain.Estimate{},
		&orderdomain.Order{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	orgID := node.Generate()
	org := organizationdomain.Organization{
		ID:       orgID,
		Name:     "Acme Corp",
		Currency: "USD",
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.FixedClock{Instant: now},
		GenID: node,
	}).(*Service)

	return &fixture{
		svc:   svc,
		db:    db,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
		orgID: orgID,
		now:   now,
	}
}

func (f *fixture) seedInvoice(t *testing.T, createdAt time.Time) {
	t.Helper()
	node := snowflakeNode(t)
	inv := invoicedomain.Invoice{
		ID:           node.Generate(),
		OrgID:        f.orgID,
		Number:       "INV-" + node.Generate().String(),
		CustomerID:   node.Generate(),
		CustomerName: "Globex",
		IssuedAt:     createdAt,
		DueAt:        createdAt.AddDate(0, 0, 14),
		Status:       invoicedomain.StatusDraft,
		TaxRate:      decimal.Zero,
		Subtotal:     decimal.NewFromInt(100),
		Tax:          decimal.Zero,
		Total:        decimal.NewFromInt(100),
		Currency:     "USD",
		Version:      1,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := f.db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func TestEnsureCatalogIdempotent(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.EnsureCatalog(f.ctx); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}
	if err := f.svc.EnsureCatalog(f.ctx); err != nil {
		t.Fatalf("EnsureCatalog second run: %v", err)
	}

	plans, err := f.svc.List(f.ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(plans))
	}
	if plans[0].Code != plandomain.CodeFree {
		t.Fatalf("cheapest plan = %s, want free", plans[0].Code)
	}
}

func TestAssignSetsOrganizationPlan(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.EnsureCatalog(f.ctx); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}

	resp, err := f.svc.Assign(f.ctx, "Starter")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if resp.Code != plandomain.CodeStarter {
		t.Fatalf("assigned plan = %s", resp.Code)
	}

	var org organizationdomain.Organization
	if err := f.db.First(&org, "id = ?", f.orgID).Error; err != nil {
		t.Fatalf("reload org: %v", err)
	}
	if org.PlanID == nil || org.PlanID.String() != resp.ID {
		t.Fatalf("org plan_id = %v, want %s", org.PlanID, resp.ID)
	}

	if _, err := f.svc.Assign(f.ctx, "enterprise"); !errors.Is(err, plandomain.ErrPlanNotFound) {
		t.Fatalf("unknown plan err = %v", err)
	}
}

func TestCheckDocumentQuota(t *testing.T) {
	f := newFixture(t)
	node := snowflakeNode(t)

	// No plan assigned: unrestricted.
	if err := f.svc.CheckDocumentQuota(f.ctx, f.orgID); err != nil {
		t.Fatalf("quota without plan: %v", err)
	}

	tiny := plandomain.Plan{
		ID:                   node.Generate(),
		Code:                 "tiny",
		Name:                 "Tiny",
		MonthlyDocumentLimit: 2,
		MonthlyPrice:         decimal.Zero,
		Currency:             "USD",
		CreatedAt:            f.now,
	}
	if err := f.db.Create(&tiny).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if _, err := f.svc.Assign(f.ctx, "tiny"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	f.seedInvoice(t, f.now.AddDate(0, 0, -1))
	if err := f.svc.CheckDocumentQuota(f.ctx, f.orgID); err != nil {
		t.Fatalf("quota at 1 of 2: %v", err)
	}

	f.seedInvoice(t, f.now.AddDate(0, 0, -2))
	if err := f.svc.CheckDocumentQuota(f.ctx, f.orgID); !errors.Is(err, plandomain.ErrQuotaExceeded) {
		t.Fatalf("quota at limit err = %v", err)
	}

	// Documents from earlier months do not count.
	err := f.db.Model(&invoicedomain.Invoice{}).Where("org_id = ?", f.orgID).
		Update("created_at", f.now.AddDate(0, -1, 0)).Error
	if err != nil {
		t.Fatalf("age invoices: %v", err)
	}
	if err := f.svc.CheckDocumentQuota(f.ctx, f.orgID); err != nil {
		t.Fatalf("quota after month rollover: %v", err)
	}
}
