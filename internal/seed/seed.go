// Package seed bootstraps a fresh database. Every API route requires an API
// key and keys can only be created through the API, so the first organization
// and its first key have to come from here.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultOrgName = "My Company"

// EnsureDefaultOrg creates the first organization when none exists and
// returns it. Existing installs get their oldest organization back.
func EnsureDefaultOrg(db *gorm.DB, node *snowflake.Node) (*organizationdomain.Organization, error) {
	if db == nil {
		return nil, errors.New("seed database handle is required")
	}

	ctx := context.Background()
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Order("id ASC").First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:               node.Generate(),
		Name:             defaultOrgName,
		Currency:         "USD",
		PrimaryColor:     "#1f2937",
		DefaultTaxRate:   decimal.Zero,
		PaymentTermsDays: 30,
		AutoMarkOverdue:  true,
		AutoExpire:       true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// BootstrapAPIKey issues the organization's first API key and returns the
// plaintext. When an active key already exists nothing is created and the
// plaintext is empty; the caller decides what to print.
func BootstrapAPIKey(db *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (string, error) {
	if db == nil {
		return "", errors.New("seed database handle is required")
	}

	ctx := context.Background()
	var count int64
	err := db.WithContext(ctx).Model(&apikeydomain.APIKey{}).
		Where("org_id = ? AND active = ?", orgID, true).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	raw, err := apikeydomain.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	key := apikeydomain.APIKey{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      "bootstrap",
		KeyHash:   apikeydomain.HashAPIKey(raw),
		LastFour:  apikeydomain.LastFour(raw),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&key).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// SeedDemoCatalog fills an empty organization with a small demo catalog so a
// fresh install has something to invoice.
func SeedDemoCatalog(db *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products int64
		if err := tx.Model(&productdomain.Product{}).Where("org_id = ?", orgID).Count(&products).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if products == 0 {
			demo := []productdomain.Product{
				{ID: node.Generate(), OrgID: orgID, Name: "Consulting", Description: "Hourly consulting", UnitPrice: decimal.NewFromInt(150), Active: true, CreatedAt: now, UpdatedAt: now},
				{ID: node.Generate(), OrgID: orgID, Name: "Support plan", Description: "Monthly support retainer", UnitPrice: decimal.NewFromInt(300), Active: true, CreatedAt: now, UpdatedAt: now},
			}
			if err := tx.Create(&demo).Error; err != nil {
				return err
			}
		}

		var customers int64
		if err := tx.Model(&customerdomain.Customer{}).Where("org_id = ?", orgID).Count(&customers).Error; err != nil {
			return err
		}
		if customers == 0 {
			demo := customerdomain.Customer{
				ID:        node.Generate(),
				OrgID:     orgID,
				Name:      "Acme Corp",
				Email:     "billing@acme.example",
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&demo).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
