package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	payablesapp "github.com/ledgerline/backend/internal/application/payables"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/infrastructure/persistence"
	"github.com/ledgerline/backend/internal/interfaces/http/dto"
	"github.com/ledgerline/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// httpEnv drives the payables handlers over the real service stack backed
// by an in-memory SQLite database. Requests are pre-authenticated by a
// middleware that injects the env's identity, so tests exercise binding,
// handlers, services, and persistence together.
type httpEnv struct {
	router *gin.Engine

	businessID uuid.UUID
	userID     uuid.UUID
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	// A bare ":memory:" DSN gives every pooled connection its own empty
	// database; the transactions opened per request would then see no
	// tables. Name the database, share the cache, and pin one connection.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Bill{},
		&domain.PaymentEntry{},
		&domain.BillPayment{},
		&domain.ClosedPeriod{},
		&domain.Vendor{},
		&domain.Category{},
		&domain.ActivityLog{},
	))

	repos := persistence.NewRepositories(db)
	tx := persistence.NewGormTransactionManager(db)
	audit := payablesapp.NewActivityLogger(persistence.NewGormActivityLogRepository(db), nil)
	guard := payablesapp.NewPeriodGuard(repos.ClosedPeriods, nil, audit, nil)

	billHandler := NewBillHandler(payablesapp.NewBillService(tx, repos, guard, audit, nil))
	paymentHandler := NewPaymentHandler(payablesapp.NewPaymentService(tx, repos, guard, audit, nil))
	allocationHandler := NewAllocationHandler(payablesapp.NewAllocationService(tx, guard, audit, nil))
	periodHandler := NewPeriodHandler(guard)
	vendorHandler := NewVendorHandler(payablesapp.NewVendorService(repos, nil))
	reportHandler := NewReportHandler(payablesapp.NewAgingService(repos))
	activityHandler := NewActivityHandler(audit)

	env := &httpEnv{
		businessID: uuid.New(),
		userID:     uuid.New(),
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.JWTBusinessIDKey, env.businessID.String())
		c.Set(middleware.JWTUserIDKey, env.userID.String())
	})

	api := r.Group("/api/v1/payables")
	{
		api.POST("/bills", billHandler.Create)
		api.GET("/bills", billHandler.List)
		api.GET("/bills/:id", billHandler.GetByID)
		api.PATCH("/bills/:id", billHandler.Update)
		api.POST("/bills/:id/void", billHandler.Void)
		api.GET("/bills/:id/allocations", billHandler.ListAllocations)

		api.POST("/payments", paymentHandler.Create)
		api.GET("/payments", paymentHandler.List)
		api.GET("/payments/:id", paymentHandler.GetByID)
		api.PATCH("/payments/:id", paymentHandler.Update)
		api.DELETE("/payments/:id", allocationHandler.Delete)
		api.POST("/payments/:id/apply", allocationHandler.Apply)
		api.POST("/payments/:id/unapply", allocationHandler.Unapply)

		api.POST("/periods/close", periodHandler.Close)
		api.POST("/periods/reopen", periodHandler.Reopen)
		api.GET("/periods", periodHandler.List)

		api.POST("/vendors", vendorHandler.Create)
		api.GET("/vendors", vendorHandler.List)
		api.GET("/vendors/:id", vendorHandler.GetByID)
		api.GET("/vendors/:id/aging", reportHandler.VendorAging)
		api.GET("/vendors/:id/credit", reportHandler.VendorCredit)
		api.GET("/vendors/:id/statement", reportHandler.Statement)
		api.GET("/vendors/:id/statement.csv", reportHandler.StatementCSV)

		api.GET("/reports/aging", reportHandler.AgingSummary)
		api.GET("/activity", activityHandler.List)
	}
	env.router = r

	return env
}

// do issues a request against the env's router. A non-nil body is sent as JSON.
func (e *httpEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decodeResponse unmarshals the response envelope
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData re-marshals the envelope's data into a typed target
func decodeData(t *testing.T, data any, target any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

// errorCode extracts the error code from a failed response
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func (e *httpEnv) createVendor(t *testing.T, name string) uuid.UUID {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/payables/vendors", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var vendor domain.Vendor
	decodeData(t, decodeResponse(t, w).Data, &vendor)
	return vendor.ID
}

func (e *httpEnv) createBill(t *testing.T, vendorID uuid.UUID, amount int64, invoiceDate, dueDate string) domain.Bill {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/payables/bills", gin.H{
		"vendor_id":    vendorID.String(),
		"invoice_date": invoiceDate,
		"due_date":     dueDate,
		"amount":       amount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var bill domain.Bill
	decodeData(t, decodeResponse(t, w).Data, &bill)
	return bill
}

func (e *httpEnv) createPayment(t *testing.T, vendorID uuid.UUID, amount int64, entryDate string) domain.PaymentEntry {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/payables/payments", gin.H{
		"account_id": uuid.New().String(),
		"vendor_id":  vendorID.String(),
		"entry_date": entryDate,
		"amount":     amount,
		"method":     "BANK_TRANSFER",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry domain.PaymentEntry
	decodeData(t, decodeResponse(t, w).Data, &entry)
	return entry
}

func (e *httpEnv) apply(t *testing.T, paymentID, billID uuid.UUID, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/payables/payments/"+paymentID.String()+"/apply", gin.H{
		"applications": []gin.H{
			{"bill_id": billID.String(), "amount": amount},
		},
	})
}
