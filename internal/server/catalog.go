package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/canopyhq/canopy/internal/catalog/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		Category string `form:"category"`
		Brand    string `form:"brand"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Category: strings.TrimSpace(query.Category),
		Brand:    strings.TrimSpace(query.Brand),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExportCatalog renders the organization's catalog in the portable batch
// format. An organization with no products exports an explicit empty payload
// rather than a 404.
func (s *Server) ExportCatalog(c *gin.Context) {
	batch, err := s.importSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if batch == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil, "message": "catalog is empty"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": batch})
}
