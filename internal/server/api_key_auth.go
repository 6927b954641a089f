package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/invozo/invozo/internal/auditcontext"
	"github.com/invozo/invozo/internal/orgcontext"
)

// APIKeyRequired authenticates requests with a bearer API key. Tenant
// identity comes exclusively from the key; org hints in the request are
// rejected so a caller can never pick another tenant.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestHasOrgHint(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		orgID, keyID, err := s.apikeySvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = auditcontext.WithActor(ctx, "api_key", keyID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestHasOrgHint(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader("X-Org-Id")) != "" {
		return true
	}
	if value, ok := c.GetQuery("org_id"); ok && strings.TrimSpace(value) != "" {
		return true
	}
	return false
}
