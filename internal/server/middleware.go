package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	obscontext "github.com/canopyhq/canopy/internal/observability/context"
	obslogger "github.com/canopyhq/canopy/internal/observability/logger"
	"github.com/canopyhq/canopy/internal/orgcontext"
	"go.uber.org/zap"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the acting organization from the X-Org-ID header,
// falling back to the configured default organization. Every catalog route
// requires an organization.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))

		var orgID int64
		if raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed <= 0 {
				AbortWithError(c, newValidationError("X-Org-ID", "invalid_organization", "organization id must be a positive integer"))
				return
			}
			orgID = parsed
		} else {
			orgID = s.cfg.DefaultOrgID
		}
		if orgID == 0 {
			AbortWithError(c, newValidationError("X-Org-ID", "missing_organization", "organization id is required"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, snowflake.ID(orgID).String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ImportRateLimit throttles import requests per organization when the redis
// limiter is configured. Limiter outages fail open.
func (s *Server) ImportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.importLimiter.Enabled() {
			c.Next()
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := s.importLimiter.AllowOrg(c.Request.Context(), orgID.String())
		if err != nil {
			obslogger.FromContext(c.Request.Context()).Warn("import rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many import requests",
				},
			})
			return
		}

		c.Next()
	}
}
