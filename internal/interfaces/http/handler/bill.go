package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"github.com/ledgerline/backend/internal/interfaces/http/dto"
)

// BillHandler handles vendor bill API endpoints
type BillHandler struct {
	BaseHandler
	billService *payablesapp.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(billService *payablesapp.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// CreateBillRequest represents a request to record a vendor bill
// @Description Request body for creating a new bill
type CreateBillRequest struct {
	VendorID    string  `json:"vendor_id" binding:"required,uuid"`
	InvoiceDate string  `json:"invoice_date" binding:"required"`
	DueDate     string  `json:"due_date" binding:"required"`
	Amount      int64   `json:"amount" binding:"required,gt=0"`
	Memo        string  `json:"memo" binding:"max=2000"`
	Terms       string  `json:"terms" binding:"max=100"`
	SourceDocID *string `json:"source_doc_id" binding:"omitempty,uuid"`
}

// UpdateBillRequest represents a patch to an existing bill. Omitted fields
// are left untouched.
type UpdateBillRequest struct {
	Memo        *string `json:"memo" binding:"omitempty,max=2000"`
	DueDate     *string `json:"due_date"`
	InvoiceDate *string `json:"invoice_date"`
	Amount      *int64  `json:"amount" binding:"omitempty,gt=0"`
	Terms       *string `json:"terms" binding:"omitempty,max=100"`
	SourceDocID *string `json:"source_doc_id" binding:"omitempty,uuid"`
}

// VoidBillRequest carries the reason a bill is being voided
type VoidBillRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListBillsRequest represents bill list query parameters
type ListBillsRequest struct {
	dto.ListRequest
	VendorID *string `form:"vendor_id" binding:"omitempty,uuid"`
	Status   *string `form:"status" binding:"omitempty,oneof=OPEN PARTIAL PAID VOID"`
	From     *string `form:"from"`
	To       *string `form:"to"`
	DueFrom  *string `form:"due_from"`
	DueTo    *string `form:"due_to"`
}

// parseDate parses a YYYY-MM-DD date string
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Create godoc
// @Summary      Record a vendor bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        request body CreateBillRequest true "Bill creation request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	var req CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}
	invoiceDate, ok := parseDate(req.InvoiceDate)
	if !ok {
		h.BadRequest(c, "Invalid invoice_date, expected YYYY-MM-DD")
		return
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		h.BadRequest(c, "Invalid due_date, expected YYYY-MM-DD")
		return
	}

	appReq := payablesapp.CreateBillRequest{
		BusinessID:  businessID,
		ActorID:     userID,
		VendorID:    vendorID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Amount:      valueobject.FromMinorUnits(req.Amount),
		Memo:        req.Memo,
		Terms:       req.Terms,
	}
	if req.SourceDocID != nil && *req.SourceDocID != "" {
		sourceDocID, err := uuid.Parse(*req.SourceDocID)
		if err != nil {
			h.BadRequest(c, "Invalid source_doc_id format")
			return
		}
		appReq.SourceDocID = &sourceDocID
	}

	bill, err := h.billService.CreateBill(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, bill)
}

// Update godoc
// @Summary      Update a bill
// @Description  Memo and due date are always editable. Amount, invoice date,
// @Description  terms, and source document are frozen once the bill has any
// @Description  active payment applications.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body UpdateBillRequest true "Bill patch"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/bills/{id} [patch]
func (h *BillHandler) Update(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	var req UpdateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	appReq := payablesapp.UpdateBillRequest{
		BusinessID: businessID,
		ActorID:    userID,
		BillID:     billID,
		Memo:       req.Memo,
		Terms:      req.Terms,
	}
	if req.DueDate != nil {
		dueDate, ok := parseDate(*req.DueDate)
		if !ok {
			h.BadRequest(c, "Invalid due_date, expected YYYY-MM-DD")
			return
		}
		appReq.DueDate = &dueDate
	}
	if req.InvoiceDate != nil {
		invoiceDate, ok := parseDate(*req.InvoiceDate)
		if !ok {
			h.BadRequest(c, "Invalid invoice_date, expected YYYY-MM-DD")
			return
		}
		appReq.InvoiceDate = &invoiceDate
	}
	if req.Amount != nil {
		amount := valueobject.FromMinorUnits(*req.Amount)
		appReq.Amount = &amount
	}
	if req.SourceDocID != nil && *req.SourceDocID != "" {
		sourceDocID, err := uuid.Parse(*req.SourceDocID)
		if err != nil {
			h.BadRequest(c, "Invalid source_doc_id format")
			return
		}
		appReq.SourceDocID = &sourceDocID
	}

	bill, err := h.billService.UpdateBill(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// Void godoc
// @Summary      Void a bill
// @Description  Marks a bill VOID. Fails with MUST_UNAPPLY_FIRST while any
// @Description  active payment application references the bill.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body VoidBillRequest false "Void reason"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/bills/{id}/void [post]
func (h *BillHandler) Void(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	var req VoidBillRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	bill, err := h.billService.VoidBill(c.Request.Context(), businessID, userID, billID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// GetByID godoc
// @Summary      Get a bill with its balances
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/bills/{id} [get]
func (h *BillHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	bill, err := h.billService.GetBill(c.Request.Context(), businessID, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// List godoc
// @Summary      List bills with balances
// @Tags         bills
// @Produce      json
// @Param        vendor_id query string false "Vendor filter" format(uuid)
// @Param        status query string false "Status filter" Enums(OPEN, PARTIAL, PAID, VOID)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{meta=dto.Meta}
// @Security     BearerAuth
// @Router       /payables/bills [get]
func (h *BillHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	req := ListBillsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := domain.BillFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
	}
	if req.VendorID != nil {
		vendorID, err := uuid.Parse(*req.VendorID)
		if err != nil {
			h.BadRequest(c, "Invalid vendor_id format")
			return
		}
		filter.VendorID = &vendorID
	}
	if req.Status != nil {
		status := domain.BillStatus(*req.Status)
		filter.Status = &status
	}
	for _, rng := range []struct {
		raw  *string
		dst  **time.Time
		name string
	}{
		{req.From, &filter.FromDate, "from"},
		{req.To, &filter.ToDate, "to"},
		{req.DueFrom, &filter.DueFrom, "due_from"},
		{req.DueTo, &filter.DueTo, "due_to"},
	} {
		if rng.raw == nil {
			continue
		}
		t, ok := parseDate(*rng.raw)
		if !ok {
			h.BadRequest(c, "Invalid "+rng.name+", expected YYYY-MM-DD")
			return
		}
		*rng.dst = &t
	}

	result, err := h.billService.ListBills(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListAllocations godoc
// @Summary      List a bill's payment applications, voided rows included
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/bills/{id}/allocations [get]
func (h *BillHandler) ListAllocations(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	allocations, err := h.billService.ListAllocationsForBill(c.Request.Context(), businessID, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocations)
}
