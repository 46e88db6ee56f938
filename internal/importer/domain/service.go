package domain

import (
	"context"
	"time"
)

// Service is the import pipeline surface. The active organization comes from
// the request context; a batch whose metadata names a different organization
// is rejected before any store access.
type Service interface {
	// ImportBatch validates and reconciles a canonical batch into the store.
	ImportBatch(ctx context.Context, batch Batch, mode Mode) Result
	// ImportDocuments parses raw text menus into a batch, then reconciles it.
	ImportDocuments(ctx context.Context, docs []Document, mode Mode) Result
	// Export reads the organization's catalog back into the portable format.
	// Returns (nil, nil) when the organization has no products.
	Export(ctx context.Context) (*Batch, error)
	// ListJobs returns the organization's reconciliation history, newest first.
	ListJobs(ctx context.Context) ([]JobResponse, error)
}

// Import sources recorded on jobs.
const (
	SourceBatch     = "batch"
	SourceDocuments = "documents"
)

type JobResponse struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Stats     *Stats    `json:"stats,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
