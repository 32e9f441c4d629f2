package handler

import (
	"github.com/gin-gonic/gin"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
)

// PeriodHandler handles accounting period close and reopen endpoints
type PeriodHandler struct {
	BaseHandler
	guard *payablesapp.PeriodGuard
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(guard *payablesapp.PeriodGuard) *PeriodHandler {
	return &PeriodHandler{guard: guard}
}

// ClosePeriodRequest names the month to close or reopen
type ClosePeriodRequest struct {
	Month string `json:"month" binding:"required,len=7"`
}

// Close godoc
// @Summary      Close an accounting month
// @Description  Closing is idempotent; closing an already closed month is
// @Description  a no-op. While closed, mutations dated in the month are
// @Description  rejected with CLOSED_PERIOD.
// @Tags         periods
// @Accept       json
// @Produce      json
// @Param        request body ClosePeriodRequest true "Month in YYYY-MM format"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/periods/close [post]
func (h *PeriodHandler) Close(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	var req ClosePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.guard.ClosePeriod(c.Request.Context(), businessID, req.Month, userID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Reopen godoc
// @Summary      Reopen a closed accounting month
// @Tags         periods
// @Accept       json
// @Produce      json
// @Param        request body ClosePeriodRequest true "Month in YYYY-MM format"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payables/periods/reopen [post]
func (h *PeriodHandler) Reopen(c *gin.Context) {
	businessID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	var req ClosePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.guard.ReopenPeriod(c.Request.Context(), businessID, req.Month, userID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// List godoc
// @Summary      List closed months for the business
// @Tags         periods
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	periods, err := h.guard.ListClosedPeriods(c.Request.Context(), businessID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, periods)
}
