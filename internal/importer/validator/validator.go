// Package validator structurally validates canonical import batches. It is
// pure: no store access, no mutation, and all violations are collected so one
// call surfaces the complete error set for a batch.
package validator

import (
	"fmt"
	"strings"

	"github.com/canopyhq/canopy/internal/importer/domain"
)

// Report is the outcome of validating one batch.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks a batch against the canonical schema.
func Validate(batch domain.Batch) Report {
	var errs []string

	if strings.TrimSpace(batch.Metadata.FormatVersion) == "" {
		errs = append(errs, "metadata.formatVersion: required")
	}
	if strings.TrimSpace(batch.Metadata.OrganizationID) == "" {
		errs = append(errs, "metadata.organizationId: required")
	}
	if len(batch.Products) == 0 {
		errs = append(errs, "products: must be a non-empty array")
	}

	for i, product := range batch.Products {
		errs = append(errs, validateProduct(i, product)...)
	}

	return Report{Valid: len(errs) == 0, Errors: errs}
}

func validateProduct(index int, product domain.Product) []string {
	var errs []string
	prefix := fmt.Sprintf("products[%d]", index)

	if strings.TrimSpace(product.ID) == "" {
		errs = append(errs, prefix+".id: required")
	}
	if strings.TrimSpace(product.Name) == "" {
		errs = append(errs, prefix+".name: required")
	}
	if strings.TrimSpace(product.Brand) == "" {
		errs = append(errs, prefix+".brand: required")
	}
	if strings.TrimSpace(product.Category) == "" {
		errs = append(errs, prefix+".category: required")
	}
	if len(product.Variants) == 0 {
		errs = append(errs, prefix+".variants: must be a non-empty array")
	}

	for j, variant := range product.Variants {
		errs = append(errs, validateVariant(prefix, j, variant)...)
	}
	return errs
}

func validateVariant(productPrefix string, index int, variant domain.Variant) []string {
	var errs []string
	prefix := fmt.Sprintf("%s.variants[%d]", productPrefix, index)

	if strings.TrimSpace(variant.ID) == "" {
		errs = append(errs, prefix+".id: required")
	}
	if strings.TrimSpace(variant.SizeWeight) == "" {
		errs = append(errs, prefix+".sizeWeight: required")
	}

	switch {
	case variant.Price == nil:
		errs = append(errs, prefix+".price: required and must be a number")
	case *variant.Price < 0:
		errs = append(errs, prefix+".price: must be a non-negative number")
	}

	switch {
	case variant.InventoryLevel == nil:
		errs = append(errs, prefix+".inventoryLevel: required and must be an integer")
	case *variant.InventoryLevel < 0:
		errs = append(errs, prefix+".inventoryLevel: must be a non-negative integer")
	}

	if variant.IsAvailable == nil {
		errs = append(errs, prefix+".isAvailable: required and must be a boolean")
	}

	return errs
}
