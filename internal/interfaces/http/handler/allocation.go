package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// AllocationHandler handles payment application API endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *payablesapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *payablesapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService}
}

// BillApplicationRequest is one bill line in an apply batch
type BillApplicationRequest struct {
	BillID string `json:"bill_id" binding:"required,uuid"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// ApplyPaymentRequest represents an apply batch against a payment entry
// @Description Request body for applying a payment to bills
type ApplyPaymentRequest struct {
	Applications []BillApplicationRequest `json:"applications" binding:"required,min=1,dive"`
}

// UnapplyPaymentRequest selects which bills to unapply a payment from.
// An empty bill list unapplies everything.
type UnapplyPaymentRequest struct {
	BillIDs []string `json:"bill_ids" binding:"omitempty,dive,uuid"`
	Reason  string   `json:"reason" binding:"max=500"`
}

// DeletePaymentRequest carries the reason for an unapply-and-delete
type DeletePaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Apply godoc
// @Summary      Apply a payment to one or more bills
// @Description  The batch lands atomically. Re-applying an existing
// @Description  (payment, bill) pair replaces the active row's amount.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment entry ID" format(uuid)
// @Param        request body ApplyPaymentRequest true "Apply batch"
// @Success      200 {object} dto.Response
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments/{id}/apply [post]
func (h *AllocationHandler) Apply(c *gin.Context) {
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

	var req ApplyPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	applications := make([]payablesapp.BillApplication, 0, len(req.Applications))
	for _, app := range req.Applications {
		billID, err := uuid.Parse(app.BillID)
		if err != nil {
			h.BadRequest(c, "Invalid bill_id format")
			return
		}
		applications = append(applications, payablesapp.BillApplication{
			BillID: billID,
			Amount: valueobject.FromMinorUnits(app.Amount),
		})
	}

	result, err := h.allocationService.Apply(c.Request.Context(), businessID, userID, paymentID, applications)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Unapply godoc
// @Summary      Reverse a payment's applications
// @Description  Voids the active allocation rows for the selected bills,
// @Description  or for every bill when none are named. Voided rows stay
// @Description  as history.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment entry ID" format(uuid)
// @Param        request body UnapplyPaymentRequest false "Unapply selection"
// @Success      204 "No Content"
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments/{id}/unapply [post]
func (h *AllocationHandler) Unapply(c *gin.Context) {
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

	var req UnapplyPaymentRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	billIDs := make([]uuid.UUID, 0, len(req.BillIDs))
	for _, raw := range req.BillIDs {
		billID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bill_ids entry format")
			return
		}
		billIDs = append(billIDs, billID)
	}

	if err := h.allocationService.Unapply(c.Request.Context(), businessID, userID, paymentID, billIDs, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Delete godoc
// @Summary      Unapply all allocations and soft-delete the payment entry
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment entry ID" format(uuid)
// @Param        request body DeletePaymentRequest false "Delete reason"
// @Success      204 "No Content"
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/payments/{id} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
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

	var req DeletePaymentRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	if err := h.allocationService.UnapplyAndDelete(c.Request.Context(), businessID, userID, paymentID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
