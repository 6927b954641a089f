package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Dashboard
// @Description  Per-status document counts and totals for the organization
// @Tags         dashboard
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  dashboarddomain.Summary
// @Router       /dashboard [get]
func (s *Server) GetDashboard(c *gin.Context) {
	resp, err := s.dashboardSvc.Summarize(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
