package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how a batch is reconciled into the store.
type Mode string

const (
	// ModeUpdate merges the batch into the existing catalog.
	ModeUpdate Mode = "update"
	// ModeReplace deletes the organization's entire catalog before inserting.
	// Destructive and non-reversible.
	ModeReplace Mode = "replace"
)

// ParseMode normalizes a mode string, defaulting to update.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeUpdate, "":
		return ModeUpdate, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// Stats itemizes a reconciliation run. Errors holds per-item failures that
// did not abort the batch.
type Stats struct {
	ProductsProcessed int      `json:"productsProcessed"`
	VariantsProcessed int      `json:"variantsProcessed"`
	ProductsCreated   int      `json:"productsCreated"`
	ProductsUpdated   int      `json:"productsUpdated"`
	VariantsCreated   int      `json:"variantsCreated"`
	VariantsUpdated   int      `json:"variantsUpdated"`
	Errors            []string `json:"errors"`
}

// Changed reports whether the run persisted anything.
func (s Stats) Changed() bool {
	return s.ProductsCreated > 0 || s.ProductsUpdated > 0 || s.VariantsCreated > 0 || s.VariantsUpdated > 0
}

// Result is the structured outcome of a reconciliation. Failures never
// escape the pipeline as raw errors; they surface here.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stats   *Stats `json:"stats,omitempty"`
}

var (
	ErrInvalidMode          = errors.New("invalid_mode")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrOrganizationMismatch = errors.New("organization_mismatch")
	ErrEmptyDocuments       = errors.New("empty_documents")
)
