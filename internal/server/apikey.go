package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/invozo/invozo/internal/apikey/domain"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
)

// @Summary      Create API Key
// @Description  Create a key; the plaintext value is returned exactly once
// @Tags         apikeys
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body apikeydomain.CreateRequest true "Create API Key Request"
// @Success      200  {object}  apikeydomain.CreateResponse
// @Router       /apikeys [post]
func (s *Server) CreateAPIKey(c *gin.Context) {
	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.apikeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionAPIKeyCreated,
			TargetType: "api_key",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"name": resp.Name},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List API Keys
// @Tags         apikeys
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  []apikeydomain.Response
// @Router       /apikeys [get]
func (s *Server) ListAPIKeys(c *gin.Context) {
	resp, err := s.apikeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Revoke API Key
// @Tags         apikeys
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "API Key ID"
// @Success      200  {object}  map[string]string
// @Router       /apikeys/{id} [delete]
func (s *Server) RevokeAPIKey(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.apikeySvc.Revoke(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionAPIKeyRevoked,
			TargetType: "api_key",
			TargetID:   id,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
