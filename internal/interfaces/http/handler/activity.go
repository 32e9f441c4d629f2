package handler

import (
	"github.com/gin-gonic/gin"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/interfaces/http/dto"
)

// ActivityHandler exposes the activity log read endpoint
type ActivityHandler struct {
	BaseHandler
	activityLogger *payablesapp.ActivityLogger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityLogger *payablesapp.ActivityLogger) *ActivityHandler {
	return &ActivityHandler{activityLogger: activityLogger}
}

// List godoc
// @Summary      List activity log entries, newest first
// @Tags         activity
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /payables/activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	businessID, err := getBusinessID(c)
	if err != nil {
		h.Unauthorized(c, "Missing identity claims")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, err := h.activityLogger.List(c.Request.Context(), businessID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
