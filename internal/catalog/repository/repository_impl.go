package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/canopyhq/canopy/internal/catalog/domain"
	"gorm.io/gorm"
)

type productRepo struct{}

func ProvideProducts() domain.ProductRepository {
	return &productRepo{}
}

func (r *productRepo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, org_id, external_id, name, brand, category, subcategory, description, image_url, strain_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.OrgID,
		product.ExternalID,
		product.Name,
		product.Brand,
		product.Category,
		product.Subcategory,
		product.Description,
		product.ImageURL,
		product.StrainType,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *productRepo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, brand = ?, category = ?, subcategory = ?, description = ?, image_url = ?, strain_type = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		product.Name,
		product.Brand,
		product.Category,
		product.Subcategory,
		product.Description,
		product.ImageURL,
		product.StrainType,
		product.UpdatedAt,
		product.OrgID,
		product.ID,
	).Error
}

func (r *productRepo) FindAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *productRepo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByExternalID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND external_id = ?", orgID, externalID).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// DeleteByOrg wipes the organization catalog. Variants go first so the wipe
// never leaves orphan rows when the dialect lacks cascading deletes.
func (r *productRepo) DeleteByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM variants WHERE org_id = ?`, orgID).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM products WHERE org_id = ?`, orgID).Error
	})
}

type variantRepo struct{}

func ProvideVariants() domain.VariantRepository {
	return &variantRepo{}
}

func (r *variantRepo) Create(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Create(variant).Error
}

func (r *variantRepo) Update(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	if variant == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE variants
		 SET size_weight = ?, price = ?, original_price = ?, thc_percentage = ?, cbd_percentage = ?, total_cannabinoids = ?, inventory_level = ?, is_available = ?, terpene_profile = ?, updated_at = ?
		 WHERE product_id = ? AND id = ?`,
		variant.SizeWeight,
		variant.Price,
		variant.OriginalPrice,
		variant.THCPercentage,
		variant.CBDPercentage,
		variant.TotalCannabinoids,
		variant.InventoryLevel,
		variant.IsAvailable,
		variant.TerpeneProfile,
		variant.UpdatedAt,
		variant.ProductID,
		variant.ID,
	).Error
}

func (r *variantRepo) FindByProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, productIDs []snowflake.ID) ([]domain.Variant, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []domain.Variant
	err := db.WithContext(ctx).
		Where("org_id = ? AND product_id IN ?", orgID, productIDs).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *variantRepo) FindByExternalID(ctx context.Context, db *gorm.DB, productID snowflake.ID, externalID string) (*domain.Variant, error) {
	var v domain.Variant
	err := db.WithContext(ctx).
		Where("product_id = ? AND external_id = ?", productID, externalID).
		First(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
