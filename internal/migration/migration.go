// Package migration applies the embedded schema. Postgres deployments run
// versioned SQL migrations; sqlite development databases fall back to gorm's
// AutoMigrate since the SQL files are postgres-flavored.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	"github.com/invozo/invozo/internal/events"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
	ledgerdomain "github.com/invozo/invozo/internal/ledger/domain"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	plandomain "github.com/invozo/invozo/internal/plan/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"gorm.io/gorm"
)

// RunPostgres applies all pending SQL migrations against a postgres database.
func RunPostgres(sqlDB *sql.DB) error {
	source, err := iofs.New(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("init migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// AutoMigrate creates the schema through gorm. Used for sqlite databases,
// where the versioned postgres SQL does not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&organizationdomain.Organization{},
		&plandomain.Plan{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&invoicedomain.Invoice{},
		&estimatedomain.Estimate{},
		&orderdomain.Order{},
		&billingdomain.LineItem{},
		&templatedomain.InvoiceTemplate{},
		&apikeydomain.APIKey{},
		&auditdomain.AuditLog{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
		&events.OutboxEvent{},
	)
}
