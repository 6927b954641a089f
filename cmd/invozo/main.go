// @title           Invozo API
// @version         1.0
// @description     Invozo invoicing API

// @contact.name   API Support
// @contact.email  support@invozo.dev

// @host      localhost:8080
// @BasePath  /api/v1
// @Schemes 	http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/apikey"
	"github.com/invozo/invozo/internal/audit"
	"github.com/invozo/invozo/internal/billing"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/config"
	"github.com/invozo/invozo/internal/customer"
	"github.com/invozo/invozo/internal/dashboard"
	"github.com/invozo/invozo/internal/estimate"
	"github.com/invozo/invozo/internal/events"
	"github.com/invozo/invozo/internal/export"
	"github.com/invozo/invozo/internal/invoice"
	"github.com/invozo/invozo/internal/invoicetemplate"
	"github.com/invozo/invozo/internal/ledger"
	"github.com/invozo/invozo/internal/migration"
	"github.com/invozo/invozo/internal/observability"
	"github.com/invozo/invozo/internal/order"
	"github.com/invozo/invozo/internal/organization"
	"github.com/invozo/invozo/internal/pdf"
	"github.com/invozo/invozo/internal/plan"
	"github.com/invozo/invozo/internal/product"
	"github.com/invozo/invozo/internal/scheduler"
	"github.com/invozo/invozo/internal/seed"
	"github.com/invozo/invozo/internal/server"
	"github.com/invozo/invozo/internal/summary"
	"github.com/invozo/invozo/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(prepareDatabase),

		// Domain services
		organization.Module,
		customer.Module,
		product.Module,
		billing.Module,
		events.Module,
		ledger.Module,
		invoice.Module,
		estimate.Module,
		order.Module,
		invoicetemplate.Module,
		apikey.Module,
		plan.Module,
		dashboard.Module,
		audit.Module,

		// Document output and background work
		pdf.Module,
		export.Module,
		summary.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// prepareDatabase applies the schema and guarantees a first organization so
// the API has a tenant to authenticate against.
func prepareDatabase(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
	if cfg.Database.Driver == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := migration.RunPostgres(sqlDB); err != nil {
			return err
		}
	} else if err := migration.AutoMigrate(conn); err != nil {
		return err
	}

	_, err := seed.EnsureDefaultOrg(conn, node)
	return err
}
