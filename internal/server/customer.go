package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	customerdomain "github.com/invozo/invozo/internal/customer/domain"
	"github.com/invozo/invozo/internal/orgcontext"
)

// @Summary      Create Customer
// @Description  Create a new customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body customerdomain.CreateRequest true "Create Customer Request"
// @Success      200  {object}  customerdomain.Response
// @Router       /customers [post]
func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if orgID, ok := orgcontext.OrgID(c.Request.Context()); ok {
		if err := s.planSvc.CheckCustomerQuota(c.Request.Context(), orgID); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "customer",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"name": resp.Name},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Customers
// @Description  List customers with cursor pagination
// @Tags         customers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        name        query  string  false  "Name"
// @Param        email       query  string  false  "Email"
// @Param        page_token  query  string  false  "Page Token"
// @Param        page_size   query  int     false  "Page Size"
// @Success      200  {object}  customerdomain.ListResponse
// @Router       /customers [get]
func (s *Server) ListCustomers(c *gin.Context) {
	var req customerdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Customer
// @Description  Get customer by ID
// @Tags         customers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  customerdomain.Response
// @Router       /customers/{id} [get]
func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Customer
// @Description  Update customer fields
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                        true  "Customer ID"
// @Param        request  body  customerdomain.UpdateRequest  true  "Update Customer Request"
// @Success      200  {object}  customerdomain.Response
// @Router       /customers/{id} [patch]
func (s *Server) UpdateCustomer(c *gin.Context) {
	var req customerdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.customerSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "customer",
			TargetID:   resp.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Customer
// @Description  Delete customer by ID
// @Tags         customers
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  map[string]string
// @Router       /customers/{id} [delete]
func (s *Server) DeleteCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.customerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentDeleted,
			TargetType: "customer",
			TargetID:   id,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
