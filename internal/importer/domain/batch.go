// Package domain defines the canonical portable catalog format exchanged
// between the text parser, validator, reconciler, and exporter. Batches are
// transient; only the catalog store rows they reconcile into are durable.
package domain

import "time"

// FormatVersion is written into every batch this service produces. Incoming
// batches carry a free-form version string that is recorded but not branched
// upon.
const FormatVersion = "1.0"

// Document is a raw text menu file handed to the parser.
type Document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Metadata identifies the batch's owning organization and provenance.
type Metadata struct {
	FormatVersion  string     `json:"formatVersion"`
	OrganizationID string     `json:"organizationId"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// Batch is the canonical in-memory catalog representation.
type Batch struct {
	Metadata Metadata  `json:"metadata"`
	Products []Product `json:"products"`
}

// Product is one catalog item in a batch. ID is the natural key used to
// match existing store rows within an organization.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	StrainType  string    `json:"strainType"`
	Variants    []Variant `json:"variants"`
}

// Variant is one sellable configuration of a product. Price, InventoryLevel
// and IsAvailable are pointers so the validator can tell a missing field from
// a zero value.
type Variant struct {
	ID                string             `json:"id"`
	SizeWeight        string             `json:"sizeWeight"`
	Price             *float64           `json:"price"`
	OriginalPrice     *float64           `json:"originalPrice,omitempty"`
	THCPercentage     *float64           `json:"thcPercentage,omitempty"`
	CBDPercentage     *float64           `json:"cbdPercentage,omitempty"`
	TotalCannabinoids *float64           `json:"totalCannabinoids,omitempty"`
	InventoryLevel    *int               `json:"inventoryLevel"`
	IsAvailable       *bool              `json:"isAvailable"`
	TerpeneProfile    map[string]float64 `json:"terpeneProfile,omitempty"`
}
