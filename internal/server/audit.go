package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/invozo/invozo/internal/audit/domain"
	"github.com/invozo/invozo/internal/orgcontext"
	"github.com/invozo/invozo/pkg/db/pagination"
)

// @Summary      List Audit Logs
// @Description  List the tenant audit trail, newest first
// @Tags         audit
// @Produce      json
// @Security     ApiKeyAuth
// @Param        action       query  string  false  "Action"
// @Param        target_type  query  string  false  "Target Type"
// @Param        target_id    query  string  false  "Target ID"
// @Param        start_at     query  string  false  "Start At"
// @Param        end_at       query  string  false  "End At"
// @Param        page_token   query  string  false  "Page Token"
// @Param        page_size    query  int     false  "Page Size"
// @Success      200  {object}  []auditdomain.AuditLog
// @Router       /audit [get]
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, ok := orgcontext.OrgID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	afterID, err := pagination.DecodeToken(query.PageToken)
	if err != nil {
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page_token"))
		return
	}

	entries, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		OrgID:      orgID,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		StartAt:    startAt,
		EndAt:      endAt,
		AfterID:    afterID,
		Limit:      query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var nextToken string
	if len(entries) > 0 {
		nextToken = pagination.EncodeToken(entries[len(entries)-1].ID)
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "next_page_token": nextToken})
}
