package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	apikeyservice "github.com/invozo/invozo/internal/apikey/service"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditrepository "github.com/invozo/invozo/internal/audit/repository"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	billingservice "github.com/invozo/invozo/internal/billing/service"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/config"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	customerservice "github.com/invozo/invozo/internal/customer/service"
	dashboardservice "github.com/invozo/invozo/internal/dashboard/service"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	estimateservice "github.com/invozo/invozo/internal/estimate/service"
	"github.com/invozo/invozo/internal/events"
	"github.com/invozo/invozo/internal/export"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	invoiceservice "github.com/invozo/invozo/internal/invoice/service"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
	templateservice "github.com/invozo/invozo/internal/invoicetemplate/service"
	ledgerdomain "github.com/invozo/invozo/internal/ledger/domain"
	ledgerservice "github.com/invozo/invozo/internal/ledger/service"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	orderservice "github.com/invozo/invozo/internal/order/service"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	organizationservice "github.com/invozo/invozo/internal/organization/service"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/internal/pdf"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	planservice "github.com/invozo/invozo/internal/plan/service"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	productservice "github.com/invozo/invozo/internal/product/service"
	"github.com/invozo/invozo/internal/summary"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNode *snowflake.Node

func snowflakeNode(t *testing.T) *snowflake.Node {
	t.Helper()
	if testNode == nil {
		node, err := snowflake.NewNode(6)
		if err != nil {
			t.Fatalf("snowflake node: %v", err)
		}
		testNode = node
	}
	return testNode
}

type apiFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	key    string
	orgID  snowflake.ID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	node := snowflakeNode(t)
	log := zap.NewNop()
	fixed := clock.FixedClock{Instant: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

	dsn := fmt.Sprintf("file:server_%s?mode=memory&cache=shared", node.Generate())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organization{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&invoicedomain.Invoice{},
		&estimatedomain.Estimate{},
		&orderdomain.Order{},
		&billingdomain.LineItem{},
		&templatedomain.InvoiceTemplate{},
		&apikeydomain.APIKey{},
		&auditdomain.AuditLog{},
		&plandomain.Plan{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
	)
	if err != nil {
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

	rate := decimal.NewFromInt(18)
	org := organizationdomain.Organization{
		ID:               node.Generate(),
		Name:             "Acme Corp",
		Currency:         "USD",
		PrimaryColor:     "#1f2937",
		DefaultTaxRate:   rate,
		PaymentTermsDays: 14,
		AutoMarkOverdue:  true,
		AutoExpire:       true,
		CreatedAt:        fixed.Now(),
		UpdatedAt:        fixed.Now(),
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}

	orgSvc := organizationservice.NewService(organizationservice.ServiceParam{DB: db, Log: log, Clock: fixed, GenID: node})
	customerSvc := customerservice.NewService(customerservice.ServiceParam{DB: db, Log: log, GenID: node})
	productSvc := productservice.NewService(productservice.ServiceParam{DB: db, Log: log, GenID: node})
	items := billingservice.NewItemBuilder(billingservice.ItemBuilderParam{DB: db, GenID: node})
	outbox := events.NewOutbox(db, node)
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{DB: db, Log: log, GenID: node})
	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB: db, Log: log, Clock: fixed, GenID: node,
		Orgs: orgSvc, Items: items, Outbox: outbox, Ledger: ledgerSvc,
	})
	estimateSvc := estimateservice.NewService(estimateservice.ServiceParam{
		DB: db, Log: log, Clock: fixed, GenID: node,
		Orgs: orgSvc, Items: items, Outbox: outbox,
	})
	orderSvc := orderservice.NewService(orderservice.ServiceParam{
		DB: db, Log: log, Clock: fixed, GenID: node,
		Orgs: orgSvc, Items: items, Outbox: outbox,
	})
	templateSvc := templateservice.NewService(templateservice.ServiceParam{DB: db, Log: log, GenID: node})
	apikeySvc := apikeyservice.NewService(apikeyservice.ServiceParam{DB: db, Log: log, Clock: fixed, GenID: node})
	planSvc := planservice.NewService(planservice.ServiceParam{DB: db, Log: log, Clock: fixed, GenID: node})
	dashboardSvc := dashboardservice.NewService(dashboardservice.ServiceParam{DB: db, Log: log, Clock: fixed, Orgs: orgSvc})
	auditSvc := auditservice.NewRecorder(auditservice.RecorderParam{
		Log: log, Clock: fixed, GenID: node, Repo: auditrepository.Provide(db),
	})

	cfg := config.Config{Environment: "test", RateLimitPerMinute: 1000}
	srv := NewServer(ServerParam{
		Config: cfg, DB: db, Log: log,
		OrgSvc: orgSvc, CustomerSvc: customerSvc, ProductSvc: productSvc,
		InvoiceSvc: invoiceSvc, EstimateSvc: estimateSvc, OrderSvc: orderSvc,
		TemplateSvc: templateSvc, APIKeySvc: apikeySvc, PlanSvc: planSvc,
		DashboardSvc: dashboardSvc, AuditSvc: auditSvc,
		PDFGen:     pdf.NewGenerator(pdf.GeneratorParam{Log: log}),
		Exporter:   export.NewExporter(export.ExporterParam{Log: log}),
		Summarizer: summary.NewSummarizer(summary.SummarizerParam{Config: cfg, Log: log}),
	})

	engine := gin.New()
	srv.RegisterAPIRoutes(engine)

	ctx := orgcontext.WithOrgID(context.Background(), org.ID)
	created, err := apikeySvc.Create(ctx, apikeydomain.CreateRequest{Name: "test"})
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}

	return &apiFixture{engine: engine, db: db, key: created.Key, orgID: org.ID}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.key)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer ivz_bogus")
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad key = %d, want 401", rec.Code)
	}

	// Supplying an org hint alongside a valid key is rejected outright.
	rec = f.do(t, http.MethodGet, "/api/v1/customers?org_id=123", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with org hint = %d, want 401", rec.Code)
	}
}

// Line item sentinels from the billing package surface as 400s, not opaque
// 500s.
func TestRejectedLineItemReturnsBadRequest(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/customers", map[string]any{
		"name":  "Initech",
		"email": "ap@initech.test",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create customer = %d: %s", rec.Code, rec.Body.String())
	}
	customerID := decodeData(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":       "Consulting",
		"unit_price": "800",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create product = %d: %s", rec.Code, rec.Body.String())
	}
	productID := decodeData(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 0},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_quantity") {
		t.Fatalf("body = %s, want invalid_quantity code", rec.Body.String())
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/customers", map[string]any{
		"name":  "Globex",
		"email": "billing@globex.test",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create customer = %d: %s", rec.Code, rec.Body.String())
	}
	customerID := decodeData(t, rec)["id"].(string)

	productIDs := make([]string, 0, 2)
	for _, p := range []map[string]any{
		{"name": "Consulting", "unit_price": "800"},
		{"name": "Support", "unit_price": "300"},
	} {
		rec = f.do(t, http.MethodPost, "/api/v1/products", p)
		if rec.Code != http.StatusOK {
			t.Fatalf("create product = %d: %s", rec.Code, rec.Body.String())
		}
		productIDs = append(productIDs, decodeData(t, rec)["id"].(string))
	}

	rec = f.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"product_id": productIDs[0], "quantity": 2},
			{"product_id": productIDs[1], "quantity": 1},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create invoice = %d: %s", rec.Code, rec.Body.String())
	}
	invoice := decodeData(t, rec)
	if invoice["subtotal"] != "1900" || invoice["tax"] != "342" || invoice["total"] != "2242" {
		t.Fatalf("totals = %v/%v/%v, want 1900/342/2242", invoice["subtotal"], invoice["tax"], invoice["total"])
	}
	invoiceID := invoice["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/status", map[string]any{
		"version": 1,
		"status":  "paid",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("draft to paid = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/status", map[string]any{
		"version": 1,
		"status":  "sent",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("draft to sent = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/invoices/"+invoiceID+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d: %s", rec.Code, rec.Body.String())
	}
	summaryText := decodeData(t, rec)["summary"].(string)
	if !strings.Contains(summaryText, "Globex") || !strings.Contains(summaryText, "2242.00") {
		t.Fatalf("summary missing facts: %q", summaryText)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/invoices/"+invoiceID+"/mailto", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mailto = %d: %s", rec.Code, rec.Body.String())
	}
	link := decodeData(t, rec)["link"].(string)
	if !strings.HasPrefix(link, "mailto:") {
		t.Fatalf("link = %q", link)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d: %s", rec.Code, rec.Body.String())
	}

	// Mutations leave an audit trail.
	var auditCount int64
	if err := f.db.Table("audit_logs").Where("org_id = ?", f.orgID).Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit logs: %v", err)
	}
	if auditCount == 0 {
		t.Fatal("expected audit entries after mutations")
	}
}

func TestVersionConflictOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Initech"})
	customerID := decodeData(t, rec)["id"].(string)
	rec = f.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "Audit", "unit_price": "1500"})
	productID := decodeData(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 1}},
	})
	invoiceID := decodeData(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPatch, "/api/v1/invoices/"+invoiceID, map[string]any{
		"version": 99,
		"notes":   "stale",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale update = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}
