package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
)

// ReportHandler exposes the payables read-side reports
type ReportHandler struct {
	BaseHandler
	agingService *payablesapp.AgingService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(agingService *payablesapp.AgingService) *ReportHandler {
	return &ReportHandler{agingService: agingService}
}

// AgingSummaryRequest represents aging summary query parameters
type AgingSummaryRequest struct {
	AsOf      *string  `form:"as_of"`
	VendorIDs []string `form:"vendor_id" binding:"omitempty,dive,uuid"`
	Page      int      `form:"page" binding:"omitempty,min=1"`
}

// StatementRequest represents statement query parameters
type StatementRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// asOfOrNow parses an optional as_of date, defaulting to today
func asOfOrNow(raw *string) (time.Time, bool) {
	if raw == nil || *raw == "" {
		return time.Now().UTC(), true
	}
	return parseDate(*raw)
}

// AgingSummary godoc
// @Summary      AP aging summary grouped by vendor
// @Description  Buckets every open bill's outstanding balance by days past
// @Description  due: current, 1-30, 31-60, 61+.
// @Tags         reports
// @Produce      json
// @Param        as_of query string false "Report date, YYYY-MM-DD, defaults to today"
// @Param        vendor_id query []string false "Restrict to these vendors" format(uuid)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/reports/aging [get]
func (h *ReportHandler) AgingSummary(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	var req AgingSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	asOf, ok := asOfOrNow(req.AsOf)
	if !ok {
		h.BadRequest(c, "Invalid as_of, expected YYYY-MM-DD")
		return
	}

	vendorIDs := make([]uuid.UUID, 0, len(req.VendorIDs))
	for _, raw := range req.VendorIDs {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid vendor_id format")
			return
		}
		vendorIDs = append(vendorIDs, vendorID)
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	rows, err := h.agingService.AgingSummary(c.Request.Context(), businessID, asOf, vendorIDs, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// VendorAging godoc
// @Summary      Aging detail for one vendor
// @Tags         reports
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Param        as_of query string false "Report date, YYYY-MM-DD, defaults to today"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/vendors/{id}/aging [get]
func (h *ReportHandler) VendorAging(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req AgingSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	asOf, ok := asOfOrNow(req.AsOf)
	if !ok {
		h.BadRequest(c, "Invalid as_of, expected YYYY-MM-DD")
		return
	}

	detail, err := h.agingService.VendorAgingDetail(c.Request.Context(), businessID, vendorID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// VendorCredit godoc
// @Summary      Unapplied payment credit held with a vendor
// @Tags         reports
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/vendors/{id}/credit [get]
func (h *ReportHandler) VendorCredit(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	credit, err := h.agingService.VendorCredit(c.Request.Context(), businessID, vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"vendor_id": vendorID, "credit": credit})
}

// Statement godoc
// @Summary      Vendor statement over a date range
// @Tags         reports
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Param        from query string true "Range start, YYYY-MM-DD"
// @Param        to query string true "Range end, YYYY-MM-DD"
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/vendors/{id}/statement [get]
func (h *ReportHandler) Statement(c *gin.Context) {
	businessID, vendorID, from, to, ok := h.statementParams(c)
	if !ok {
		return
	}

	rows, err := h.agingService.Statement(c.Request.Context(), businessID, vendorID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// StatementCSV godoc
// @Summary      Vendor statement over a date range as CSV
// @Tags         reports
// @Produce      text/csv
// @Param        id path string true "Vendor ID" format(uuid)
// @Param        from query string true "Range start, YYYY-MM-DD"
// @Param        to query string true "Range end, YYYY-MM-DD"
// @Success      200 {string} string "CSV body"
// @Security     BearerAuth
// @Router       /payables/vendors/{id}/statement.csv [get]
func (h *ReportHandler) StatementCSV(c *gin.Context) {
	businessID, vendorID, from, to, ok := h.statementParams(c)
	if !ok {
		return
	}

	body, err := h.agingService.StatementCSV(c.Request.Context(), businessID, vendorID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="statement.csv"`)
	c.Data(http.StatusOK, "text/csv", body)
}

// statementParams binds the shared path and query parameters of the two
// statement endpoints
func (h *ReportHandler) statementParams(c *gin.Context) (businessID, vendorID uuid.UUID, from, to time.Time, ok bool) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	vendorID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req StatementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	from, okFrom := parseDate(req.From)
	if !okFrom {
		h.BadRequest(c, "Invalid from, expected YYYY-MM-DD")
		return
	}
	to, okTo := parseDate(req.To)
	if !okTo {
		h.BadRequest(c, "Invalid to, expected YYYY-MM-DD")
		return
	}

	return businessID, vendorID, from, to, true
}
