// Package server wires the HTTP surface: authentication, rate limiting, and
// one handler file per domain module.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	"github.com/invozo/invozo/internal/config"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	dashboarddomain "github.com/invozo/invozo/internal/dashboard/domain"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	"github.com/invozo/invozo/internal/export"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	"github.com/invozo/invozo/internal/invoice/render"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
	"github.com/invozo/invozo/internal/observability/logger"
	"github.com/invozo/invozo/internal/observability/metrics"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	"github.com/invozo/invozo/internal/pdf"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/invozo/invozo/internal/summary"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	orgSvc       organizationdomain.Service
	customerSvc  customerdomain.Service
	productSvc   productdomain.Service
	invoiceSvc   invoicedomain.Service
	estimateSvc  estimatedomain.Service
	orderSvc     orderdomain.Service
	templateSvc  templatedomain.Service
	apikeySvc    apikeydomain.Service
	planSvc      plandomain.Service
	dashboardSvc dashboarddomain.Service
	auditSvc     *auditservice.Recorder
	renderer     render.Renderer
	pdfGen       *pdf.Generator
	exporter     *export.Exporter
	summarizer   summary.Summarizer

	limiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger

	OrgSvc       organizationdomain.Service
	CustomerSvc  customerdomain.Service
	ProductSvc   productdomain.Service
	InvoiceSvc   invoicedomain.Service
	EstimateSvc  estimatedomain.Service
	OrderSvc     orderdomain.Service
	TemplateSvc  templatedomain.Service
	APIKeySvc    apikeydomain.Service
	PlanSvc      plandomain.Service
	DashboardSvc dashboarddomain.Service
	AuditSvc     *auditservice.Recorder
	PDFGen       *pdf.Generator
	Exporter     *export.Exporter
	Summarizer   summary.Summarizer
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg: p.Config,
		db:  p.DB,
		log: p.Log.Named("server"),

		orgSvc:       p.OrgSvc,
		customerSvc:  p.CustomerSvc,
		productSvc:   p.ProductSvc,
		invoiceSvc:   p.InvoiceSvc,
		estimateSvc:  p.EstimateSvc,
		orderSvc:     p.OrderSvc,
		templateSvc:  p.TemplateSvc,
		apikeySvc:    p.APIKeySvc,
		planSvc:      p.PlanSvc,
		dashboardSvc: p.DashboardSvc,
		auditSvc:     p.AuditSvc,
		renderer:     render.NewRenderer(),
		pdfGen:       p.PDFGen,
		exporter:     p.Exporter,
		summarizer:   p.Summarizer,

		limiter: newRateLimiter(p.Config.RateLimitPerMinute, time.Minute),
	}
}

type EngineParam struct {
	fx.In

	Config      config.Config
	HTTPMetrics *metrics.HTTPMetrics
}

func NewEngine(p EngineParam) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", metrics.Handler())
	return engine
}

// RateLimit throttles per API key, falling back to client IP before auth.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			key = c.ClientIP()
		}
		if !s.limiter.Allow(key) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1")
	api.Use(s.RateLimit())
	api.Use(s.APIKeyRequired())

	org := api.Group("/organization")
	{
		org.GET("", s.GetOrganization)
		org.PATCH("", s.UpdateOrganization)
		org.POST("/plan", s.AssignPlan)
	}
	api.GET("/plans", s.ListPlans)
	api.GET("/dashboard", s.GetDashboard)

	customers := api.Group("/customers")
	{
		customers.POST("", s.CreateCustomer)
		customers.GET("", s.ListCustomers)
		customers.GET("/:id", s.GetCustomerByID)
		customers.PATCH("/:id", s.UpdateCustomer)
		customers.DELETE("/:id", s.DeleteCustomer)
	}

	products := api.Group("/products")
	{
		products.POST("", s.CreateProduct)
		products.GET("", s.ListProducts)
		products.GET("/:id", s.GetProductByID)
		products.PATCH("/:id", s.UpdateProduct)
		products.DELETE("/:id", s.ArchiveProduct)
	}

	invoices := api.Group("/invoices")
	{
		invoices.POST("", s.CreateInvoice)
		invoices.GET("", s.ListInvoices)
		invoices.GET("/export", s.ExportInvoices)
		invoices.GET("/:id", s.GetInvoiceByID)
		invoices.PATCH("/:id", s.UpdateInvoice)
		invoices.POST("/:id/status", s.SetInvoiceStatus)
		invoices.DELETE("/:id", s.DeleteInvoice)
		invoices.GET("/:id/html", s.RenderInvoiceHTML)
		invoices.GET("/:id/pdf", s.DownloadInvoicePDF)
		invoices.GET("/:id/mailto", s.InvoiceMailtoLink)
		invoices.GET("/:id/summary", s.SummarizeInvoice)
	}

	estimates := api.Group("/estimates")
	{
		estimates.POST("", s.CreateEstimate)
		estimates.GET("", s.ListEstimates)
		estimates.GET("/export", s.ExportEstimates)
		estimates.GET("/:id", s.GetEstimateByID)
		estimates.PATCH("/:id", s.UpdateEstimate)
		estimates.POST("/:id/status", s.SetEstimateStatus)
		estimates.POST("/:id/convert", s.ConvertEstimate)
		estimates.DELETE("/:id", s.DeleteEstimate)
		estimates.GET("/:id/pdf", s.DownloadEstimatePDF)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", s.CreateOrder)
		orders.GET("", s.ListOrders)
		orders.GET("/export", s.ExportOrders)
		orders.GET("/:id", s.GetOrderByID)
		orders.PATCH("/:id", s.UpdateOrder)
		orders.POST("/:id/status", s.SetOrderStatus)
		orders.DELETE("/:id", s.DeleteOrder)
	}

	templates := api.Group("/templates")
	{
		templates.POST("", s.CreateTemplate)
		templates.GET("", s.ListTemplates)
		templates.GET("/:id", s.GetTemplateByID)
		templates.PATCH("/:id", s.UpdateTemplate)
		templates.POST("/:id/default", s.SetDefaultTemplate)
	}

	apikeys := api.Group("/apikeys")
	{
		apikeys.POST("", s.CreateAPIKey)
		apikeys.GET("", s.ListAPIKeys)
		apikeys.DELETE("/:id", s.RevokeAPIKey)
	}

	api.GET("/audit", s.ListAuditLogs)
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, engine *gin.Engine) {
		s.RegisterAPIRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
