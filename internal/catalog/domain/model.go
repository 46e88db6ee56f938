// Package domain contains persistence models for the catalog store.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Strain types recognized by the catalog.
const (
	StrainIndica   = "indica"
	StrainSativa   = "sativa"
	StrainHybrid   = "hybrid"
	StrainCBD      = "cbd"
	StrainBalanced = "balanced"
)

// Product is a sellable catalog item owned by an organization. ExternalID is
// the natural key import batches use to match against existing rows.
type Product struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_products_org_external,priority:1" json:"organization_id"`
	ExternalID  string       `gorm:"type:text;not null;uniqueIndex:ux_products_org_external,priority:2" json:"external_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Brand       string       `gorm:"type:text;not null" json:"brand"`
	Category    string       `gorm:"type:text;not null" json:"category"`
	Subcategory *string      `gorm:"type:text" json:"subcategory,omitempty"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	ImageURL    *string      `gorm:"type:text;column:image_url" json:"image_url,omitempty"`
	StrainType  string       `gorm:"type:text;not null;default:hybrid" json:"strain_type"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// Variant is a size/price/potency configuration of a product. ExternalID is
// unique within the owning product.
type Variant struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"column:org_id;not null;index" json:"organization_id"`
	ProductID         snowflake.ID      `gorm:"column:product_id;not null;uniqueIndex:ux_variants_product_external,priority:1" json:"product_id"`
	ExternalID        string            `gorm:"type:text;not null;uniqueIndex:ux_variants_product_external,priority:2" json:"external_id"`
	SizeWeight        string            `gorm:"type:text;not null;column:size_weight" json:"size_weight"`
	Price             float64           `gorm:"not null" json:"price"`
	OriginalPrice     *float64          `gorm:"column:original_price" json:"original_price,omitempty"`
	THCPercentage     *float64          `gorm:"column:thc_percentage" json:"thc_percentage,omitempty"`
	CBDPercentage     *float64          `gorm:"column:cbd_percentage" json:"cbd_percentage,omitempty"`
	TotalCannabinoids *float64          `gorm:"column:total_cannabinoids" json:"total_cannabinoids,omitempty"`
	InventoryLevel    int               `gorm:"not null;default:0" json:"inventory_level"`
	IsAvailable       bool              `gorm:"not null;default:true" json:"is_available"`
	TerpeneProfile    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"terpene_profile"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Variant) TableName() string { return "variants" }
