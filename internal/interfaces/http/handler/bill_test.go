package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillHandler_Create(t *testing.T) {
	env := newHTTPEnv(t)
	vendorID := env.createVendor(t, "Acme Supplies")

	t.Run("records a bill in OPEN status", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payables/bills", gin.H{
			"vendor_id":    vendorID.String(),
			"invoice_date": "2026-03-05",
			"due_date":     "2026-04-04",
			"amount":       10000,
			"memo":         "March stock",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var bill domain.Bill
		decodeData(t, decodeResponse(t, w).Data, &bill)
		assert.Equal(t, domain.BillStatusOpen, bill.Status)
		assert.Equal(t, int64(10000), bill.Amount.MinorUnits())
		assert.Equal(t, vendorID, bill.VendorID)
		assert.Equal(t, "March stock", bill.Memo)
	})

	t.Run("rejects unknown vendor", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payables/bills", gin.H{
			"vendor_id":    uuid.New().String(),
			"invoice_date": "2026-03-05",
			"due_date":     "2026-04-04",
			"amount":       10000,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})

	t.Run("rejects malformed invoice date", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payables/bills", gin.H{
			"vendor_id":    vendorID.String(),
			"invoice_date": "03/05/2026",
			"due_date":     "2026-04-04",
			"amount":       10000,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payables/bills", gin.H{
			"vendor_id":    vendorID.String(),
			"invoice_date": "2026-03-05",
			"due_date":     "2026-04-04",
			"amount":       0,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBillHandler_GetByID(t *testing.T) {
	env := newHTTPEnv(t)
	vendorID := env.createVendor(t, "Acme Supplies")
	bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")

	t.Run("returns bill with balances", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills/"+bill.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got payablesapp.BillWithBalance
		decodeData(t, decodeResponse(t, w).Data, &got)
		assert.Equal(t, bill.ID, got.Bill.ID)
		assert.Equal(t, int64(0), got.AppliedSum.MinorUnits())
		assert.Equal(t, int64(10000), got.Outstanding.MinorUnits())
	})

	t.Run("returns 404 for unknown bill", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills/"+uuid.New().String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})

	t.Run("returns 400 for malformed id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBillHandler_Update(t *testing.T) {
	env := newHTTPEnv(t)
	vendorID := env.createVendor(t, "Acme Supplies")

	t.Run("patches memo and due date", func(t *testing.T) {
		bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")

		w := env.do(t, http.MethodPatch, "/api/v1/payables/bills/"+bill.ID.String(), gin.H{
			"memo":     "Revised memo",
			"due_date": "2026-04-20",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated domain.Bill
		decodeData(t, decodeResponse(t, w).Data, &updated)
		assert.Equal(t, "Revised memo", updated.Memo)
		assert.Equal(t, "2026-04-20", updated.DueDate.Format("2006-01-02"))
	})

	t.Run("freezes amount once the bill has applications", func(t *testing.T) {
		bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")
		payment := env.createPayment(t, vendorID, 4000, "2026-03-10")
		w := env.apply(t, payment.ID, bill.ID, 4000)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, http.MethodPatch, "/api/v1/payables/bills/"+bill.ID.String(), gin.H{
			"amount": 20000,
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "BILL_HAS_APPLICATIONS", errorCode(t, w))
	})

	t.Run("memo stays editable with applications", func(t *testing.T) {
		bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")
		payment := env.createPayment(t, vendorID, 4000, "2026-03-10")
		w := env.apply(t, payment.ID, bill.ID, 4000)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, http.MethodPatch, "/api/v1/payables/bills/"+bill.ID.String(), gin.H{
			"memo": "Still editable",
		})

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestBillHandler_Void(t *testing.T) {
	env := newHTTPEnv(t)
	vendorID := env.createVendor(t, "Acme Supplies")

	t.Run("voids an unapplied bill", func(t *testing.T) {
		bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")

		w := env.do(t, http.MethodPost, "/api/v1/payables/bills/"+bill.ID.String()+"/void", gin.H{
			"reason": "Duplicate entry",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var voided domain.Bill
		decodeData(t, decodeResponse(t, w).Data, &voided)
		assert.Equal(t, domain.BillStatusVoid, voided.Status)
		assert.Equal(t, "Duplicate entry", voided.VoidReason)

		// Voiding again is a no-op success.
		w = env.do(t, http.MethodPost, "/api/v1/payables/bills/"+bill.ID.String()+"/void", nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("refuses while applications are active", func(t *testing.T) {
		bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")
		payment := env.createPayment(t, vendorID, 4000, "2026-03-10")
		w := env.apply(t, payment.ID, bill.ID, 4000)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, http.MethodPost, "/api/v1/payables/bills/"+bill.ID.String()+"/void", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "MUST_UNAPPLY_FIRST", errorCode(t, w))
	})
}

func TestBillHandler_List(t *testing.T) {
	env := newHTTPEnv(t)
	vendorA := env.createVendor(t, "Acme Supplies")
	vendorB := env.createVendor(t, "Bolt Freight")

	env.createBill(t, vendorA, 10000, "2026-03-05", "2026-04-04")
	env.createBill(t, vendorA, 5000, "2026-03-10", "2026-04-09")
	env.createBill(t, vendorB, 7500, "2026-03-12", "2026-04-11")

	t.Run("lists all bills with meta", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(3), resp.Meta.Total)

		var items []payablesapp.BillWithBalance
		decodeData(t, resp.Data, &items)
		assert.Len(t, items, 3)
	})

	t.Run("filters by vendor", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills?vendor_id="+vendorB.String(), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var items []payablesapp.BillWithBalance
		decodeData(t, decodeResponse(t, w).Data, &items)
		require.Len(t, items, 1)
		assert.Equal(t, vendorB, items[0].Bill.VendorID)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/payables/bills?status=SHREDDED", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBillHandler_ListAllocations(t *testing.T) {
	env := newHTTPEnv(t)
	vendorID := env.createVendor(t, "Acme Supplies")
	bill := env.createBill(t, vendorID, 10000, "2026-03-05", "2026-04-04")
	payment := env.createPayment(t, vendorID, 4000, "2026-03-10")

	w := env.apply(t, payment.ID, bill.ID, 4000)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/payables/bills/"+bill.ID.String()+"/allocations", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rows []domain.BillPayment
	decodeData(t, decodeResponse(t, w).Data, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, payment.ID, rows[0].PaymentEntryID)
	assert.Equal(t, int64(4000), rows[0].Amount.MinorUnits())
	assert.True(t, rows[0].Active)
}
