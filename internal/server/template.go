package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	templatedomain "github.com/invozo/invozo/internal/invoicetemplate/domain"
)

// @Summary      Create Template
// @Description  Create an invoice template; the org's first becomes default
// @Tags         templates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body templatedomain.CreateRequest true "Create Template Request"
// @Success      200  {object}  templatedomain.Response
// @Router       /templates [post]
func (s *Server) CreateTemplate(c *gin.Context) {
	var req templatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "template",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"name": resp.Name},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Templates
// @Tags         templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        name        query  string  false  "Name"
// @Param        is_default  query  bool    false  "Default Only"
// @Success      200  {object}  []templatedomain.Response
// @Router       /templates [get]
func (s *Server) ListTemplates(c *gin.Context) {
	var req templatedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Template
// @Tags         templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  templatedomain.Response
// @Router       /templates/{id} [get]
func (s *Server) GetTemplateByID(c *gin.Context) {
	resp, err := s.templateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                        true  "Template ID"
// @Param        request  body  templatedomain.UpdateRequest  true  "Update Template Request"
// @Success      200  {object}  templatedomain.Response
// @Router       /templates/{id} [patch]
func (s *Server) UpdateTemplate(c *gin.Context) {
	var req templatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.templateSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "template",
			TargetID:   resp.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Set Default Template
// @Description  Make this template the org default; clears the previous one
// @Tags         templates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  templatedomain.Response
// @Router       /templates/{id}/default [post]
func (s *Server) SetDefaultTemplate(c *gin.Context) {
	resp, err := s.templateSvc.SetDefault(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionSettingsUpdated,
			TargetType: "template",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"is_default": true},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
