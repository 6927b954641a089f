package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
)

// @Summary      List Plans
// @Description  List the subscription plan catalog
// @Tags         plans
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  []plandomain.Response
// @Router       /plans [get]
func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.planSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type assignPlanRequest struct {
	Code string `json:"code"`
}

// @Summary      Assign Plan
// @Description  Put the organization on the named plan
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body assignPlanRequest true "Assign Plan Request"
// @Success      200  {object}  plandomain.Response
// @Router       /organization/plan [post]
func (s *Server) AssignPlan(c *gin.Context) {
	var req assignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "required", "plan code is required"))
		return
	}

	resp, err := s.planSvc.Assign(c.Request.Context(), req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionSettingsUpdated,
			TargetType: "plan",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"plan_code": resp.Code},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
