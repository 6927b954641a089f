package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	auditservice "github.com/invozo/invozo/internal/audit/service"
	"github.com/invozo/invozo/internal/export"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	"github.com/invozo/invozo/internal/invoice/render"
	"github.com/invozo/invozo/internal/mail"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/internal/pdf"
	"github.com/invozo/invozo/internal/summary"
)

// @Summary      Create Invoice
// @Description  Create an invoice from line item inputs
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body invoicedomain.CreateRequest true "Create Invoice Request"
// @Success      200  {object}  invoicedomain.Response
// @Router       /invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateRequest
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

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentCreated,
			TargetType: "invoice",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"number": resp.Number},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Invoices
// @Description  List invoices with status and customer filters
// @Tags         invoices
// @Produce      json
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Param        page_token   query  string  false  "Page Token"
// @Param        page_size    query  int     false  "Page Size"
// @Success      200  {object}  invoicedomain.ListResponse
// @Router       /invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Invoice
// @Description  Get invoice by ID, items included
// @Tags         invoices
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Response
// @Router       /invoices/{id} [get]
func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Invoice
// @Description  Replace invoice fields and items; version must match
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                       true  "Invoice ID"
// @Param        request  body  invoicedomain.UpdateRequest  true  "Update Invoice Request"
// @Success      200  {object}  invoicedomain.Response
// @Router       /invoices/{id} [patch]
func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentUpdated,
			TargetType: "invoice",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"version": resp.Version},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Set Invoice Status
// @Description  Advance the invoice through its status machine
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                          true  "Invoice ID"
// @Param        request  body  invoicedomain.SetStatusRequest  true  "Set Status Request"
// @Success      200  {object}  invoicedomain.Response
// @Router       /invoices/{id}/status [post]
func (s *Server) SetInvoiceStatus(c *gin.Context) {
	var req invoicedomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.SetStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionStatusChanged,
			TargetType: "invoice",
			TargetID:   resp.ID,
			Metadata:   map[string]any{"status": string(resp.Status)},
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Invoice
// @Description  Delete invoice and its line items
// @Tags         invoices
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  map[string]string
// @Router       /invoices/{id} [delete]
func (s *Server) DeleteInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.invoiceSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), nil, auditservice.Entry{
			Action:     auditdomain.ActionDocumentDeleted,
			TargetType: "invoice",
			TargetID:   id,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// @Summary      Render Invoice HTML
// @Description  Render the invoice using the org's default template styling
// @Tags         invoices
// @Produce      html
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {string}  string
// @Router       /invoices/{id}/html [get]
func (s *Server) RenderInvoiceHTML(c *gin.Context) {
	input, err := s.invoiceRenderInput(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	html, err := s.renderer.RenderHTML(*input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// @Summary      Download Invoice PDF
// @Tags         invoices
// @Produce      application/pdf
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    binary
// @Router       /invoices/{id}/pdf [get]
func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	input, err := s.invoiceRenderInput(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.pdfGen.Generate(*input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+pdf.Filename("invoice", input.Document.Number)+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary      Invoice Mailto Link
// @Description  Build a mailto link prefilled with the invoice summary
// @Tags         invoices
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  map[string]string
// @Router       /invoices/{id}/mailto [get]
func (s *Server) InvoiceMailtoLink(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	org, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dueAt := resp.DueAt
	link := mail.Link(mail.Request{
		To:          resp.CustomerEmail,
		Kind:        "Invoice",
		Number:      resp.Number,
		CompanyName: org.Name,
		Total:       resp.Total,
		Currency:    resp.Currency,
		DueAt:       &dueAt,
	})
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"link": link}})
}

// @Summary      Summarize Invoice
// @Description  Natural-language summary of the invoice
// @Tags         invoices
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  map[string]string
// @Router       /invoices/{id}/summary [get]
func (s *Server) SummarizeInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]summary.ItemLine, 0, len(resp.Items))
	for _, item := range resp.Items {
		items = append(items, summary.ItemLine{
			Description: item.ProductName,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		})
	}

	dueAt := resp.DueAt
	text, err := s.summarizer.DocumentSummary(c.Request.Context(), summary.Input{
		Kind:         "invoice",
		Number:       resp.Number,
		Status:       string(resp.Status),
		CustomerName: resp.CustomerName,
		Total:        resp.Total,
		Currency:     resp.Currency,
		DueAt:        &dueAt,
		Notes:        resp.Notes,
		Items:        items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"summary": text}})
}

// @Summary      Export Invoices
// @Description  Download the filtered invoice list as a spreadsheet
// @Tags         invoices
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     ApiKeyAuth
// @Param        status       query  string  false  "Status"
// @Param        customer_id  query  string  false  "Customer ID"
// @Success      200  {file}  binary
// @Router       /invoices/export [get]
func (s *Server) ExportInvoices(c *gin.Context) {
	var req invoicedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PageSize = exportPageSize

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows := make([]export.DocumentRow, 0, len(resp.Invoices))
	for i := range resp.Invoices {
		inv := &resp.Invoices[i]
		issuedAt, dueAt := inv.IssuedAt, inv.DueAt
		rows = append(rows, export.DocumentRow{
			Number:       inv.Number,
			CustomerName: inv.CustomerName,
			Status:       string(inv.Status),
			IssuedAt:     &issuedAt,
			DueAt:        &dueAt,
			Subtotal:     inv.Subtotal,
			Tax:          inv.Tax,
			Total:        inv.Total,
			Currency:     inv.Currency,
		})
	}
	s.writeWorkbook(c, "Invoices", "invoices", rows)
}

// invoiceRenderInput loads the invoice and the org's default template and
// assembles the shared render view.
func (s *Server) invoiceRenderInput(c *gin.Context) (*render.RenderInput, error) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return nil, err
	}

	org, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		return nil, err
	}

	issuedAt, dueAt := resp.IssuedAt, resp.DueAt
	input := &render.RenderInput{
		Template: s.templateView(c, org.Name, org.LogoURL, org.PrimaryColor),
		Document: render.DocumentView{
			ID:       resp.ID,
			Kind:     "Invoice",
			Number:   resp.Number,
			Status:   string(resp.Status),
			IssuedAt: &issuedAt,
			DueAt:    &dueAt,
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
	return input, nil
}
