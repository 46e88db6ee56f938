package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	importerdomain "github.com/canopyhq/canopy/internal/importer/domain"
)

type importBatchRequest struct {
	Mode  string               `json:"mode"`
	Batch importerdomain.Batch `json:"batch"`
}

type importDocumentsRequest struct {
	Mode      string                    `json:"mode"`
	Documents []importerdomain.Document `json:"documents"`
}

// ImportBatch reconciles a canonical batch into the organization's catalog.
// The result is always 200 with a structured body; per-item failures show up
// in stats.errors, not as an HTTP error.
func (s *Server) ImportBatch(c *gin.Context) {
	var req importBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	mode, err := importerdomain.ParseMode(req.Mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result := s.importSvc.ImportBatch(c.Request.Context(), req.Batch, mode)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ImportDocuments parses raw text menus and reconciles them.
func (s *Server) ImportDocuments(c *gin.Context) {
	var req importDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	mode, err := importerdomain.ParseMode(req.Mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(req.Documents) == 0 {
		AbortWithError(c, newValidationError("documents", "empty_documents", "at least one document is required"))
		return
	}

	result := s.importSvc.ImportDocuments(c.Request.Context(), req.Documents, mode)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ListImportJobs returns the organization's reconciliation history.
func (s *Server) ListImportJobs(c *gin.Context) {
	resp, err := s.importSvc.ListJobs(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
