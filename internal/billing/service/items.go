// Package service holds billing helpers shared by the document services.
package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/invozo/invozo/internal/billing/domain"
	productdomain "github.com/invozo/invozo/internal/product/domain"
	"github.com/invozo/invozo/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// ItemBuilder resolves client line inputs into persisted line items, taking
// product snapshots so later catalog edits never rewrite past documents.
type ItemBuilder struct {
	genID       *snowflake.Node
	productrepo repository.Repository[productdomain.Product]
}

type ItemBuilderParam struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
}

func NewItemBuilder(p ItemBuilderParam) *ItemBuilder {
	return &ItemBuilder{
		genID:       p.GenID,
		productrepo: repository.ProvideStore[productdomain.Product](p.DB),
	}
}

// Build snapshots product name, unit price, and tax override for each input.
// An explicit input price or rate wins over the catalog value. Every line is
// validated and recomputed before it is returned.
func (b *ItemBuilder) Build(
	ctx context.Context,
	db *gorm.DB,
	orgID snowflake.ID,
	kind billingdomain.DocumentKind,
	documentID snowflake.ID,
	inputs []billingdomain.LineItemInput,
) ([]billingdomain.LineItem, error) {
	items := make([]billingdomain.LineItem, 0, len(inputs))
	for _, input := range inputs {
		productID, err := productdomain.ParseID(input.ProductID)
		if err != nil {
			return nil, billingdomain.ErrInvalidProduct
		}
		product, err := b.productrepo.FindOne(ctx, db, "id = ? AND org_id = ?", productID, orgID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, billingdomain.ErrInvalidProduct
		}

		item := billingdomain.LineItem{
			ID:           b.genID.Generate(),
			OrgID:        orgID,
			DocumentKind: kind,
			DocumentID:   documentID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     input.Quantity,
			UnitPrice:    product.UnitPrice,
			TaxRate:      product.TaxRate,
		}
		if input.UnitPrice != nil {
			item.UnitPrice = *input.UnitPrice
		}
		if input.TaxRate != nil {
			item.TaxRate = input.TaxRate
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		item.Recompute()
		items = append(items, item)
	}
	return items, nil
}
