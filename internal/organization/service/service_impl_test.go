package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/orgcontext"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(7)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

type fixture struct {
	svc organizationdomain.Service
	db  *gorm.DB
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	node := snowflakeNode(t)
	dsn := fmt.Sprintf("file:orgsvc_%s?mode=memory&cache=shared", node.Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&organizationdomain.Organization{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.FixedClock{Instant: now},
		GenID: node,
	})
	return &fixture{svc: svc, db: db, now: now}
}

func TestCreateAppliesDefaultsAndClock(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(context.Background(), organizationdomain.CreateRequest{
		Name:     "  Acme Corp  ",
		Currency: "eur",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if resp.Name != "Acme Corp" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", resp.Currency)
	}
	if resp.PrimaryColor != "#1f2937" {
		t.Errorf("primary_color = %q", resp.PrimaryColor)
	}
	if !resp.AutoMarkOverdue || !resp.AutoExpire {
		t.Errorf("automation defaults = %v/%v, want true/true", resp.AutoMarkOverdue, resp.AutoExpire)
	}
	if !resp.CreatedAt.Equal(f.now) {
		t.Errorf("created_at = %s, want %s", resp.CreatedAt, f.now)
	}
	if !resp.UpdatedAt.Equal(f.now) {
		t.Errorf("updated_at = %s, want %s", resp.UpdatedAt, f.now)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), organizationdomain.CreateRequest{Name: "   "})
	if !errors.Is(err, organizationdomain.ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestUpdateRefreshesTaxConfig(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), organizationdomain.CreateRequest{Name: "Acme", Currency: "USD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, err := organizationdomain.ParseID(created.ID)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	// Prime the cache with the zero rate.
	if _, err := f.svc.TaxConfigFor(ctx, orgID); err != nil {
		t.Fatalf("tax config: %v", err)
	}

	rate := decimal.NewFromInt(18)
	updated, err := f.svc.Update(ctx, organizationdomain.UpdateRequest{DefaultTaxRate: &rate})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.DefaultTaxRate.Equal(rate) {
		t.Errorf("default_tax_rate = %s, want 18", updated.DefaultTaxRate)
	}

	cfg, err := f.svc.TaxConfigFor(ctx, orgID)
	if err != nil {
		t.Fatalf("tax config after update: %v", err)
	}
	if !cfg.DefaultTaxRate.Equal(rate) {
		t.Errorf("cached rate = %s, want 18 after invalidation", cfg.DefaultTaxRate)
	}
}

func TestUpdateRejectsBadColor(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), organizationdomain.CreateRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, err := organizationdomain.ParseID(created.ID)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}

	color := "magenta"
	_, err = f.svc.Update(orgcontext.WithOrgID(context.Background(), orgID), organizationdomain.UpdateRequest{PrimaryColor: &color})
	if !errors.Is(err, organizationdomain.ErrInvalidColor) {
		t.Fatalf("err = %v, want ErrInvalidColor", err)
	}
}
