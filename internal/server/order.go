package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	"github.com/invozo/invozo/internal/export"
	orderdomain "github.com/invozo/invozo/internal/order/domain"
	"github.com/invozo/invozo/internal/orgcontext"
)

// @Summary      Create Order
// @Description  Create an order from line item inputs
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body orderdomain.CreateRequest true "Create Order Request"
// @Success      200  {object}  orderdomain.Response
// @Router       /orders [post]
func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if orgID, ok := orgcontext.OrgID(c.Request.Context()); ok {
		if err := s.planSvc.CheckDocumentQuota(c.Request.Context(), orgID); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "order",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"number": resp.Number},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Orders
// @Tags         orders
// @Produce      json
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Param        page_token   query  string  false  "Page Token"
// @Param        page_size    query  int     false  "Page Size"
// @Success      200  {object}  orderdomain.ListResponse
// @Router       /orders [get]
func (s *Server) ListOrders(c *gin.Context) {
	var req orderdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Order
// @Tags         orders
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  orderdomain.Response
// @Router       /orders/{id} [get]
func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                     true  "Order ID"
// @Param        request  body  orderdomain.UpdateRequest  true  "Update Order Request"
// @Success      200  {object}  orderdomain.Response
// @Router       /orders/{id} [patch]
func (s *Server) UpdateOrder(c *gin.Context) {
	var req orderdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.orderSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "order",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"version": resp.Version},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Set Order Status
// @Description  Advance the order through the fulfillment pipeline
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                        true  "Order ID"
// @Param        request  body  orderdomain.SetStatusRequest  true  "Set Status Request"
// @Success      200  {object}  orderdomain.Response
// @Router       /orders/{id}/status [post]
func (s *Server) SetOrderStatus(c *gin.Context) {
	var req orderdomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.orderSvc.SetStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionStatusChanged,
			TargetType: "order",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"status": string(resp.Status)},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Order
// @Tags         orders
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  map[string]string
// @Router       /orders/{id} [delete]
func (s *Server) DeleteOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.orderSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentDeleted,
			TargetType: "order",
			TargetID:   id,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// @Summary      Export Orders
// @Tags         orders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Success      200  {file}  binary
// @Router       /orders/export [get]
func (s *Server) ExportOrders(c *gin.Context) {
	var req orderdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PageSize = exportPageSize

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows := make([]export.DocumentRow, 0, len(resp.Orders))
	for i := range resp.Orders {
		ord := &resp.Orders[i]
		placedAt := ord.PlacedAt
		rows = append(rows, export.DocumentRow{
			Number:       ord.Number,
			CustomerName: ord.CustomerName,
			Status:       string(ord.Status),
			IssuedAt:     &placedAt,
			Subtotal:     ord.Subtotal,
			Tax:          ord.Tax,
			Total:        ord.Total,
			Currency:     ord.Currency,
		})
	}
	s.writeWorkbook(c, "Orders", "orders", rows)
}
