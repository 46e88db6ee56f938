package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ProductRepository is the org-scoped CRUD contract for catalog products.
type ProductRepository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	FindAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Product, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*Product, error)
	// DeleteByOrg removes every product of the organization together with its
	// variants. Used by replace-mode imports.
	DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error
}

// VariantRepository is the product-scoped CRUD contract for variants.
type VariantRepository interface {
	Create(ctx context.Context, db *gorm.DB, variant *Variant) error
	Update(ctx context.Context, db *gorm.DB, variant *Variant) error
	FindByProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) ([]Variant, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, productID snowflake.ID, externalID string) (*Variant, error)
}
