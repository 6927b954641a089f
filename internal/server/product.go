package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	productdomain "github.com/invozo/invozo/internal/product/domain"
)

// @Summary      Create Product
// @Description  Create a catalog product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body productdomain.CreateRequest true "Create Product Request"
// @Success      200  {object}  productdomain.Response
// @Router       /products [post]
func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "product",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"name": resp.Name},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Products
// @Description  List catalog products
// @Tags         products
// @Produce      json
// @Security     ApiKeyAuth
// @Param        name  query  string  false  "Name"
// @Success      200  {object}  []productdomain.Response
// @Router       /products [get]
func (s *Server) ListProducts(c *gin.Context) {
	var req productdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Product
// @Description  Get product by ID
// @Tags         products
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  productdomain.Response
// @Router       /products/{id} [get]
func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Product
// @Description  Update product fields
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                       true  "Product ID"
// @Param        request  body  productdomain.UpdateRequest  true  "Update Product Request"
// @Success      200  {object}  productdomain.Response
// @Router       /products/{id} [patch]
func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "product",
			TargetID:   resp.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Archive Product
// @Description  Archive a product so it no longer appears in pickers
// @Tags         products
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  productdomain.Response
// @Router       /products/{id} [delete]
func (s *Server) ArchiveProduct(c *gin.Context) {
	resp, err := s.productSvc.Archive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentDeleted,
			TargetType: "product",
			TargetID:   resp.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
