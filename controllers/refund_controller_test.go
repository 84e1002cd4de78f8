package controllers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

func paidQuote(t *testing.T) models.Quote {
	t.Helper()
	quote := models.Quote{
		Name:          "홍길동",
		Email:         "refund@example.com",
		Destination:   "제주도",
		Adults:        2,
		Status:        models.QuoteStatusCompleted,
		PaymentStatus: "paid",
	}
	require.NoError(t, config.DB.Create(&quote).Error)
	return quote
}

func TestRefundRequiresGatewayAndAdmin(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	usePayments(t, nil)

	body := map[string]interface{}{"paymentId": "cs_1", "reason": "changed plans"}
	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Body: body})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Body: body, Headers: headers})
	utils.AssertResponse(t, resp, http.StatusServiceUnavailable, "error")
}

func TestPartialThenFullRefund(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	gw := &fakeGateway{}
	usePayments(t, gw)

	quote := paidQuote(t)
	createPayment(t, models.Payment{
		ID:                    "cs_paid",
		CustomerEmail:         "refund@example.com",
		Amount:                50000,
		Status:                models.PaymentStatusCompleted,
		StripePaymentIntentID: "pi_paid",
		Metadata:              models.JSONMap{"quoteId": quote.ID},
	})

	// partial refunds must leave something
	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "PATCH", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_paid", "amount": 50000, "reason": "too much"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "PATCH", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_paid", "amount": 20000, "reason": "one traveler cancelled"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	assert.Equal(t, float64(20000), resp.Data()["refundAmount"])
	assert.Equal(t, float64(30000), resp.Data()["remaining"])

	require.Len(t, gw.refunds, 1)
	assert.Equal(t, "pi_paid", gw.refunds[0].PaymentIntentID)
	assert.Equal(t, int64(20000), gw.refunds[0].Amount)
	assert.Equal(t, models.RefundTypePartial, gw.refunds[0].Reason)

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_paid").Error)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, payment.Status)
	assert.Equal(t, int64(20000), payment.RefundAmount)
	assert.Empty(t, payment.RefundID)

	// more than what is left
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_paid", "amount": 40000, "reason": "rest"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	// zero means the remainder
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_paid", "reason": "trip cancelled"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	assert.Equal(t, float64(30000), resp.Data()["amount"])
	assert.Equal(t, float64(0), resp.Data()["remaining"])

	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_paid").Error)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(50000), payment.RefundAmount)
	assert.NotEmpty(t, payment.RefundID)

	var refunds []models.Refund
	require.NoError(t, config.DB.Where("payment_id = ?", "cs_paid").Find(&refunds).Error)
	assert.Len(t, refunds, 2)

	var updated models.Quote
	require.NoError(t, config.DB.First(&updated, "id = ?", quote.ID).Error)
	assert.Equal(t, models.QuoteStatusCancelled, updated.Status)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
	assert.NotNil(t, updated.RefundedAt)

	var emails int64
	config.DB.Model(&models.EmailNotificationLog{}).Where("type = ?", models.EmailRefundProcessed).Count(&emails)
	assert.Equal(t, int64(2), emails)

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_paid", "reason": "again"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")
	assert.Len(t, gw.refunds, 2)
}

func TestRefundLooksUpIntentThroughSession(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	gw := &fakeGateway{sessions: map[string]*services.CheckoutSession{
		"cs_nointent": {ID: "cs_nointent", PaymentIntentID: "pi_from_session"},
	}}
	usePayments(t, gw)

	createPayment(t, models.Payment{ID: "cs_nointent", CustomerEmail: "a@example.com", Amount: 10000, Status: models.PaymentStatusCompleted})

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_nointent", "reason": "duplicate", "refundType": "duplicate"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	require.Len(t, gw.refunds, 1)
	assert.Equal(t, "pi_from_session", gw.refunds[0].PaymentIntentID)
	assert.Equal(t, "duplicate", gw.refunds[0].Reason)
}

func TestRefundErrors(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	gw := &fakeGateway{}
	usePayments(t, gw)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_missing", "reason": "x"}})
	utils.AssertResponse(t, resp, http.StatusNotFound, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_missing"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "PATCH", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_missing", "reason": "x"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	createPayment(t, models.Payment{ID: "cs_err", CustomerEmail: "e@example.com", Amount: 10000,
		Status: models.PaymentStatusCompleted, StripePaymentIntentID: "pi_err"})
	gw.refundErr = errors.New("card_declined")
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/refund", Headers: headers,
		Body: map[string]interface{}{"paymentId": "cs_err", "reason": "x"}})
	utils.AssertResponse(t, resp, http.StatusBadGateway, "error")

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_err").Error)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Zero(t, payment.RefundAmount)
}

// heldGateway parks every refund until release is closed so that requests overlap
type heldGateway struct {
	fakeGateway
	mu      sync.Mutex
	issued  int
	arrived chan struct{}
	release chan struct{}
}

func (g *heldGateway) CreateRefund(ctx context.Context, req services.RefundRequest) (*services.RefundResult, error) {
	g.arrived <- struct{}{}
	select {
	case <-g.release:
	case <-time.After(5 * time.Second):
		return nil, errors.New("refund was never released")
	}
	g.mu.Lock()
	g.issued++
	id := fmt.Sprintf("re_held_%d", g.issued)
	g.mu.Unlock()
	return &services.RefundResult{ID: id, Status: "succeeded", Amount: req.Amount, Currency: "krw"}, nil
}

func TestConcurrentPartialRefundsAddUp(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	gw := &heldGateway{arrived: make(chan struct{}, 2), release: make(chan struct{})}
	usePayments(t, gw)

	createPayment(t, models.Payment{
		ID:                    "cs_twice",
		CustomerEmail:         "refund@example.com",
		Amount:                50000,
		Status:                models.PaymentStatusCompleted,
		StripePaymentIntentID: "pi_twice",
	})

	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for _, amount := range []int64{10000, 15000} {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "PATCH", Path: "/api/payment/refund", Headers: headers,
				Body: map[string]interface{}{"paymentId": "cs_twice", "amount": amount, "reason": "split"}})
			statuses <- resp.StatusCode
		}(amount)
	}

	// both requests have read the payment before either writes
	for i := 0; i < 2; i++ {
		select {
		case <-gw.arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("refund requests did not reach the gateway")
		}
	}
	close(gw.release)
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_twice").Error)
	assert.Equal(t, int64(25000), payment.RefundAmount)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, payment.Status)

	var refunds int64
	config.DB.Model(&models.Refund{}).Where("payment_id = ?", "cs_twice").Count(&refunds)
	assert.Equal(t, int64(2), refunds)
}

func TestRefundOverrunIsNotRecorded(t *testing.T) {
	router := newTestRouter(t)
	headers := adminHeaders(t)
	gw := &heldGateway{arrived: make(chan struct{}, 2), release: make(chan struct{})}
	usePayments(t, gw)

	createPayment(t, models.Payment{
		ID:                    "cs_overrun",
		CustomerEmail:         "refund@example.com",
		Amount:                50000,
		Status:                models.PaymentStatusCompleted,
		StripePaymentIntentID: "pi_overrun",
	})

	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for _, amount := range []int64{30000, 40000} {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "PATCH", Path: "/api/payment/refund", Headers: headers,
				Body: map[string]interface{}{"paymentId": "cs_overrun", "amount": amount, "reason": "split"}})
			statuses <- resp.StatusCode
		}(amount)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-gw.arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("refund requests did not reach the gateway")
		}
	}
	close(gw.release)
	wg.Wait()
	close(statuses)

	var ok, failed int
	for status := range statuses {
		switch status {
		case http.StatusOK:
			ok++
		case http.StatusInternalServerError:
			failed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_overrun").Error)
	assert.LessOrEqual(t, payment.RefundAmount, payment.Amount)

	var refunds int64
	config.DB.Model(&models.Refund{}).Where("payment_id = ?", "cs_overrun").Count(&refunds)
	assert.Equal(t, int64(1), refunds)
}
