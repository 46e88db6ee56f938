package domain

import (
	"context"
	"errors"
	"time"
)

// Service is the read surface over the catalog store used by HTTP handlers.
type Service interface {
	List(ctx context.Context, req ListRequest) ([]ProductResponse, error)
	Get(ctx context.Context, id string) (*ProductResponse, error)
}

type ListRequest struct {
	Category string
	Brand    string
}

type ProductResponse struct {
	ID          string            `json:"id"`
	ExternalID  string            `json:"external_id"`
	Name        string            `json:"name"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Subcategory *string           `json:"subcategory,omitempty"`
	Description *string           `json:"description,omitempty"`
	ImageURL    *string           `json:"image_url,omitempty"`
	StrainType  string            `json:"strain_type"`
	Variants    []VariantResponse `json:"variants"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type VariantResponse struct {
	ID                string             `json:"id"`
	ExternalID        string             `json:"external_id"`
	SizeWeight        string             `json:"size_weight"`
	Price             float64            `json:"price"`
	OriginalPrice     *float64           `json:"original_price,omitempty"`
	THCPercentage     *float64           `json:"thc_percentage,omitempty"`
	CBDPercentage     *float64           `json:"cbd_percentage,omitempty"`
	TotalCannabinoids *float64           `json:"total_cannabinoids,omitempty"`
	InventoryLevel    int                `json:"inventory_level"`
	IsAvailable       bool               `json:"is_available"`
	TerpeneProfile    map[string]float64 `json:"terpene_profile,omitempty"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
