package validator

import (
	"testing"

	"github.com/canopyhq/canopy/internal/importer/domain"
	"github.com/stretchr/testify/assert"
)

func validBatch() domain.Batch {
	price := 25.0
	inventory := 10
	available := true
	return domain.Batch{
		Metadata: domain.Metadata{
			FormatVersion:  "1.0",
			OrganizationID: "42",
		},
		Products: []domain.Product{
			{
				ID:       "coastal-farms-blue-dream-1a2b3c4d",
				Name:     "Blue Dream",
				Brand:    "Coastal Farms",
				Category: "flower",
				Variants: []domain.Variant{
					{
						ID:             "coastal-farms-blue-dream-1a2b3c4d-3-5g-0a0b0c0d",
						SizeWeight:     "3.5g",
						Price:          &price,
						InventoryLevel: &inventory,
						IsAvailable:    &available,
					},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormedBatch(t *testing.T) {
	report := Validate(validBatch())
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
}

func TestValidateMissingMetadata(t *testing.T) {
	batch := validBatch()
	batch.Metadata.FormatVersion = ""
	batch.Metadata.OrganizationID = "  "

	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "metadata.formatVersion: required")
	assert.Contains(t, report.Errors, "metadata.organizationId: required")
}

func TestValidateEmptyProducts(t *testing.T) {
	batch := validBatch()
	batch.Products = nil

	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "products: must be a non-empty array")
}

func TestValidateProductFields(t *testing.T) {
	batch := validBatch()
	batch.Products[0].Name = ""
	batch.Products[0].Brand = ""

	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "products[0].name: required")
	assert.Contains(t, report.Errors, "products[0].brand: required")
}

func TestValidateVariantFieldErrorsCarryIndexes(t *testing.T) {
	batch := validBatch()
	second := validBatch().Products[0]
	second.ID = "valley-grove-og-kush-9f8e7d6c"
	second.Name = "OG Kush"
	second.Variants[0].Price = nil
	second.Variants[0].IsAvailable = nil
	batch.Products = append(batch.Products, second)

	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "products[1].variants[0].price: required and must be a number")
	assert.Contains(t, report.Errors, "products[1].variants[0].isAvailable: required and must be a boolean")
}

func TestValidateNegativeValues(t *testing.T) {
	batch := validBatch()
	negPrice := -1.0
	negInventory := -5
	batch.Products[0].Variants[0].Price = &negPrice
	batch.Products[0].Variants[0].InventoryLevel = &negInventory

	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "products[0].variants[0].price: must be a non-negative number")
	assert.Contains(t, report.Errors, "products[0].variants[0].inventoryLevel: must be a non-negative integer")
}

func TestValidateCollectsAllErrorsInOnePass(t *testing.T) {
	batch := domain.Batch{}
	report := Validate(batch)
	assert.False(t, report.Valid)
	assert.Len(t, report.Errors, 3)
}
