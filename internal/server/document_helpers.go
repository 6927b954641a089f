package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invozo/invozo/internal/export"
	"github.com/invozo/invozo/internal/invoice/render"
	"github.com/invozo/invozo/internal/orgcontext"
)

// exportPageSize caps spreadsheet exports at the pagination maximum.
const exportPageSize = 200

// templateView merges the org's default template over organization branding.
// Orgs that never customized a template get the built-in styling.
func (s *Server) templateView(c *gin.Context, orgName, logoURL, primaryColor string) render.TemplateView {
	view := render.TemplateView{
		CompanyName:  orgName,
		LogoURL:      logoURL,
		PrimaryColor: primaryColor,
	}

	orgID, ok := orgcontext.OrgID(c.Request.Context())
	if !ok {
		return view
	}
	tpl, err := s.templateSvc.DefaultFor(c.Request.Context(), orgID)
	if err != nil || tpl == nil {
		return view
	}

	view.Name = tpl.Name
	view.Locale = tpl.Locale
	view.Currency = tpl.Currency
	if value, ok := tpl.Header["company_name"].(string); ok && value != "" {
		view.CompanyName = value
	}
	if value, ok := tpl.Header["logo_url"].(string); ok && value != "" {
		view.LogoURL = value
	}
	if value, ok := tpl.Style["primary_color"].(string); ok && value != "" {
		view.PrimaryColor = value
	}
	if value, ok := tpl.Style["font_family"].(string); ok && value != "" {
		view.FontFamily = value
	}
	if value, ok := tpl.Footer["notes"].(string); ok {
		view.FooterNotes = value
	}
	if value, ok := tpl.Footer["legal"].(string); ok {
		view.FooterLegal = value
	}
	return view
}

func (s *Server) writeWorkbook(c *gin.Context, sheet, kind string, rows []export.DocumentRow) {
	data, err := s.exporter.Documents(sheet, rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := export.Filename(kind, time.Now().UTC())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
