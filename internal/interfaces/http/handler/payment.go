package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
	"github.com/ledgerline/backend/internal/interfaces/http/dto"
)

// PaymentHandler handles vendor payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *payablesapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *payablesapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateVendorPaymentRequest represents a request to record a vendor payment
// @Description Request body for creating a vendor payment
type CreateVendorPaymentRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	VendorID  string `json:"vendor_id" binding:"required,uuid"`
	EntryDate string `json:"entry_date" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Method    string `json:"method" binding:"required,oneof=CASH CHECK BANK_TRANSFER CARD OTHER"`
	Memo      string `json:"memo" binding:"max=2000"`
}

// UpdatePaymentRequest represents a patch to a payment entry. Omitted
// fields are left untouched.
type UpdatePaymentRequest struct {
	Memo      *string `json:"memo" binding:"omitempty,max=2000"`
	AccountID *string `json:"account_id" binding:"omitempty,uuid"`
	VendorID  *string `json:"vendor_id" binding:"omitempty,uuid"`
	EntryDate *string `json:"entry_date"`
	Amount    *int64  `json:"amount" binding:"omitempty,gt=0"`
	Method    *string `json:"method" binding:"omitempty,oneof=CASH CHECK BANK_TRANSFER CARD OTHER"`
}

// ListPaymentsRequest represents payment list query parameters
type ListPaymentsRequest struct {
	dto.ListRequest
	VendorID       *string `form:"vendor_id" binding:"omitempty,uuid"`
	Kind           *string `form:"kind" binding:"omitempty,oneof=VENDOR_PAYMENT GENERAL"`
	From           *string `form:"from"`
	To             *string `form:"to"`
	IncludeDeleted bool    `form:"include_deleted"`
}

// Create godoc
// @Summary      Record a vendor payment
// @Description  Records a vendor payment as an outflow ledger transaction
// @Description  under the business's Purchase category.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreateVendorPaymentRequest true "Payment creation request"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	var req CreateVendorPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}
	entryDate, ok := parseDate(req.EntryDate)
	if !ok {
		h.BadRequest(c, "Invalid entry_date, expected YYYY-MM-DD")
		return
	}

	entry, err := h.paymentService.CreateVendorPayment(c.Request.Context(), payablesapp.CreateVendorPaymentRequest{
		BusinessID: businessID,
		ActorID:    userID,
		AccountID:  accountID,
		VendorID:   vendorID,
		EntryDate:  entryDate,
		Amount:     valueobject.FromMinorUnits(req.Amount),
		Method:     domain.PaymentMethod(req.Method),
		Memo:       req.Memo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Update godoc
// @Summary      Update a payment entry
// @Description  Memo edits are always legal. Account, vendor, date, amount,
// @Description  and method fail with APPLIED_PAYMENT_IMMUTABLE while the
// @Description  entry has any active application.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment entry ID" format(uuid)
// @Param        request body UpdatePaymentRequest true "Payment patch"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req UpdatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	appReq := payablesapp.UpdatePaymentRequest{
		BusinessID:     businessID,
		ActorID:        userID,
		PaymentEntryID: paymentID,
		Memo:           req.Memo,
	}
	if req.AccountID != nil {
		accountID, err := uuid.Parse(*req.AccountID)
		if err != nil {
			h.BadRequest(c, "Invalid account_id format")
			return
		}
		appReq.AccountID = &accountID
	}
	if req.VendorID != nil {
		vendorID, err := uuid.Parse(*req.VendorID)
		if err != nil {
			h.BadRequest(c, "Invalid vendor_id format")
			return
		}
		appReq.VendorID = &vendorID
	}
	if req.EntryDate != nil {
		entryDate, ok := parseDate(*req.EntryDate)
		if !ok {
			h.BadRequest(c, "Invalid entry_date, expected YYYY-MM-DD")
			return
		}
		appReq.EntryDate = &entryDate
	}
	if req.Amount != nil {
		amount := valueobject.FromMinorUnits(*req.Amount)
		appReq.Amount = &amount
	}
	if req.Method != nil {
		method := domain.PaymentMethod(*req.Method)
		appReq.Method = &method
	}

	entry, err := h.paymentService.UpdatePayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// GetByID godoc
// @Summary      Get a payment entry with its applied and unapplied sums
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), businessID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
// @Summary      List payment entries with applied sums
// @Tags         payments
// @Produce      json
// @Param        vendor_id query string false "Vendor filter" format(uuid)
// @Param        kind query string false "Kind filter" Enums(VENDOR_PAYMENT, GENERAL)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{meta=dto.Meta}
// @Security     BearerAuth
// @Router       /payables/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	req := ListPaymentsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := domain.PaymentEntryFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		IncludeDeleted: req.IncludeDeleted,
	}
	if req.VendorID != nil {
		vendorID, err := uuid.Parse(*req.VendorID)
		if err != nil {
			h.BadRequest(c, "Invalid vendor_id format")
			return
		}
		filter.VendorID = &vendorID
	}
	if req.Kind != nil {
		kind := domain.PaymentKind(*req.Kind)
		filter.Kind = &kind
	}
	if req.From != nil {
		from, ok := parseDate(*req.From)
		if !ok {
			h.BadRequest(c, "Invalid from, expected YYYY-MM-DD")
			return
		}
		filter.FromDate = &from
	}
	if req.To != nil {
		to, ok := parseDate(*req.To)
		if !ok {
			h.BadRequest(c, "Invalid to, expected YYYY-MM-DD")
			return
		}
		filter.ToDate = &to
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}
