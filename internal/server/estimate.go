package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	"github.com/invozo/invozo/internal/export"
	"github.com/invozo/invozo/internal/invoice/render"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/internal/pdf"
)

// @Summary      Create Estimate
// @Description  Create an estimate from line item inputs
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body estimatedomain.CreateRequest true "Create Estimate Request"
// @Success      200  {object}  estimatedomain.Response
// @Router       /estimates [post]
func (s *Server) CreateEstimate(c *gin.Context) {
	var req estimatedomain.CreateRequest
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

	resp, err := s.estimateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "estimate",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"number": resp.Number},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Estimates
// @Tags         estimates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Param        page_token   query  string  false  "Page Token"
// @Param        page_size    query  int     false  "Page Size"
// @Success      200  {object}  estimatedomain.ListResponse
// @Router       /estimates [get]
func (s *Server) ListEstimates(c *gin.Context) {
	var req estimatedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.estimateSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Estimate
// @Tags         estimates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  estimatedomain.Response
// @Router       /estimates/{id} [get]
func (s *Server) GetEstimateByID(c *gin.Context) {
	resp, err := s.estimateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Estimate
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                        true  "Estimate ID"
// @Param        request  body  estimatedomain.UpdateRequest  true  "Update Estimate Request"
// @Success      200  {object}  estimatedomain.Response
// @Router       /estimates/{id} [patch]
func (s *Server) UpdateEstimate(c *gin.Context) {
	var req estimatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.estimateSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "estimate",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"version": resp.Version},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Set Estimate Status
// @Description  Advance the estimate through its status machine
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                           true  "Estimate ID"
// @Param        request  body  estimatedomain.SetStatusRequest  true  "Set Status Request"
// @Success      200  {object}  estimatedomain.Response
// @Router       /estimates/{id}/status [post]
func (s *Server) SetEstimateStatus(c *gin.Context) {
	var req estimatedomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.estimateSvc.SetStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionStatusChanged,
			TargetType: "estimate",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"status": string(resp.Status)},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type convertEstimateRequest struct {
	Version int64 `json:"version"`
}

// @Summary      Convert Estimate
// @Description  Create an invoice from the estimate; both writes commit or
// @Description  roll back together
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                  true  "Estimate ID"
// @Param        request  body  convertEstimateRequest  true  "Convert Request"
// @Success      200  {object}  estimatedomain.ConvertResult
// @Router       /estimates/{id}/convert [post]
func (s *Server) ConvertEstimate(c *gin.Context) {
	var req convertEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.estimateSvc.ConvertToInvoice(c.Request.Context(), estimatedomain.ConvertRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Version: req.Version,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionEstimateConverted,
			TargetType: "estimate",
			TargetID:   result.Estimate.ID,
			Metadata: map[string]any{
				"invoice_id":     result.InvoiceID,
				"invoice_number": result.InvoiceNo,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// @Summary      Delete Estimate
// @Tags         estimates
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  map[string]string
// @Router       /estimates/{id} [delete]
func (s *Server) DeleteEstimate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.estimateSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentDeleted,
			TargetType: "estimate",
			TargetID:   id,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// @Summary      Download Estimate PDF
// @Tags         estimates
// @Produce      application/pdf
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {file}    binary
// @Router       /estimates/{id}/pdf [get]
func (s *Server) DownloadEstimatePDF(c *gin.Context) {
	resp, err := s.estimateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	org, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	issuedAt, validUntil := resp.IssuedAt, resp.ValidUntil
	input := render.RenderInput{
		Template: s.templateView(c, org.Name, org.LogoURL, org.PrimaryColor),
		Document: render.DocumentView{
			ID:       resp.ID,
			Kind:     "Estimate",
			Number:   resp.Number,
			Status:   string(resp.Status),
			IssuedAt: &issuedAt,
			DueAt:    &validUntil,
			Subtotal: resp.Subtotal,
			Tax:      resp.Tax,
			Total:    resp.Total,
			TaxRate:  resp.TaxRate,
			Currency: resp.Currency,
			Notes:    resp.Notes,
		},
		Customer: render.CustomerView{Name: resp.CustomerName, Email: resp.CustomerEmail},
	}
	for _, item := range resp.Items {
		view := render.LineItemView{
			Description: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			TaxRate:     resp.TaxRate,
		}
		if item.TaxRate != nil {
			view.TaxRate = *item.TaxRate
		}
		input.Items = append(input.Items, view)
	}

	data, err := s.pdfGen.Generate(input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+pdf.Filename("estimate", resp.Number)+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary      Export Estimates
// @Tags         estimates
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Success      200  {file}  binary
// @Router       /estimates/export [get]
func (s *Server) ExportEstimates(c *gin.Context) {
	var req estimatedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PageSize = exportPageSize

	resp, err := s.estimateSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows := make([]export.DocumentRow, 0, len(resp.Estimates))
	for i := range resp.Estimates {
		est := &resp.Estimates[i]
		issuedAt, validUntil := est.IssuedAt, est.ValidUntil
		rows = append(rows, export.DocumentRow{
			Number:       est.Number,
			CustomerName: est.CustomerName,
			Status:       string(est.Status),
			IssuedAt:     &issuedAt,
			DueAt:        &validUntil,
			Subtotal:     est.Subtotal,
			Tax:          est.Tax,
			Total:        est.Total,
			Currency:     est.Currency,
		})
	}
	s.writeWorkbook(c, "Estimates", "estimates", rows)
}
