package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerline/backend/internal/interfaces/http/handler"
)

// PayablesHandlers bundles the handlers behind the payables API.
type PayablesHandlers struct {
	Bills       *handler.BillHandler
	Payments    *handler.PaymentHandler
	Allocations *handler.AllocationHandler
	Periods     *handler.PeriodHandler
	Vendors     *handler.VendorHandler
	Reports     *handler.ReportHandler
	Activity    *handler.ActivityHandler
}

// PayablesRoutes builds the /payables domain group. The optional writeGuard
// middleware runs ahead of every mutating route; reads are left open to any
// authenticated caller.
func PayablesRoutes(h PayablesHandlers, writeGuard ...gin.HandlerFunc) *DomainGroup {
	gated := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(writeGuard)+1)
		chain = append(chain, writeGuard...)
		return append(chain, fn)
	}

	g := NewDomainGroup("payables", "/payables")

	g.POST("/bills", gated(h.Bills.Create)...).
		GET("/bills", h.Bills.List).
		GET("/bills/:id", h.Bills.GetByID).
		PATCH("/bills/:id", gated(h.Bills.Update)...).
		POST("/bills/:id/void", gated(h.Bills.Void)...).
		GET("/bills/:id/allocations", h.Bills.ListAllocations)

	g.POST("/payments", gated(h.Payments.Create)...).
		GET("/payments", h.Payments.List).
		GET("/payments/:id", h.Payments.GetByID).
		PATCH("/payments/:id", gated(h.Payments.Update)...).
		DELETE("/payments/:id", gated(h.Allocations.Delete)...).
		POST("/payments/:id/apply", gated(h.Allocations.Apply)...).
		POST("/payments/:id/unapply", gated(h.Allocations.Unapply)...)

	g.POST("/periods/close", gated(h.Periods.Close)...).
		POST("/periods/reopen", gated(h.Periods.Reopen)...).
		GET("/periods", h.Periods.List)

	g.POST("/vendors", gated(h.Vendors.Create)...).
		GET("/vendors", h.Vendors.List).
		GET("/vendors/:id", h.Vendors.GetByID).
		GET("/vendors/:id/aging", h.Reports.VendorAging).
		GET("/vendors/:id/credit", h.Reports.VendorCredit).
		GET("/vendors/:id/statement", h.Reports.Statement).
		GET("/vendors/:id/statement.csv", h.Reports.StatementCSV)

	g.GET("/reports/aging", h.Reports.AgingSummary)
	g.GET("/activity", h.Activity.List)

	return g
}

// SystemRoutes builds the /system group for info and health probes.
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/health", h.Health)
	return g
}
