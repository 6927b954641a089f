package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	organizationdomain "github.com/invozo/invozo/internal/organization/domain"
)

// @Summary      Get Organization
// @Description  Get the authenticated organization's settings
// @Tags         organization
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  organizationdomain.Response
// @Router       /organization [get]
func (s *Server) GetOrganization(c *gin.Context) {
	resp, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Organization
// @Description  Update settings such as tax rate, payment terms, and sweeps
// @Tags         organization
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body organizationdomain.UpdateRequest true "Update Organization Request"
// @Success      200  {object}  organizationdomain.Response
// @Router       /organization [patch]
func (s *Server) UpdateOrganization(c *gin.Context) {
	var req organizationdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orgSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionSettingsUpdated,
			TargetType: "organization",
			TargetID:   resp.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
