package controllers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

func TestGetProducts(t *testing.T) {
	router := newTestRouter(t)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/products"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	products := resp.Data()["products"].([]interface{})
	require.Len(t, products, 3)
	first := products[0].(map[string]interface{})
	assert.Equal(t, "BASIC_CONSULTATION", first["id"])
	assert.Equal(t, float64(50000), first["price"])
}

func TestCreateCheckoutSessionTestMode(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, nil)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/checkout",
		Body: map[string]string{"productId": "BASIC_CONSULTATION", "userId": "google:1"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")

	sessionID := resp.Data()["sessionId"].(string)
	assert.True(t, strings.HasPrefix(sessionID, "test_session_"), sessionID)
	assert.Equal(t, "/payment/success?session_id="+sessionID, resp.Data()["url"])
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	router := newTestRouter(t)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/checkout",
		Body: map[string]string{"productId": "BASIC_CONSULTATION"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/checkout",
		Body: map[string]string{"productId": "GOLD_TOUR", "userId": "google:1"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")
}

func TestCreateCheckoutSession(t *testing.T) {
	router := newTestRouter(t)
	gw := &fakeGateway{}
	usePayments(t, gw)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/checkout",
		Body: map[string]string{
			"productId":     "PREMIUM_CONSULTATION",
			"userId":        "kakao:42",
			"quoteId":       "quote-1",
			"customerEmail": " buyer@example.com ",
		}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	assert.Equal(t, "cs_test_fake", resp.Data()["sessionId"])
	assert.Equal(t, float64(2500), resp.Data()["fee"])
	assert.True(t, strings.HasPrefix(resp.Data()["orderId"].(string), "TG_"))

	require.Len(t, gw.checkouts, 1)
	req := gw.checkouts[0]
	assert.Equal(t, int64(100000), req.Product.Price)
	assert.Equal(t, "buyer@example.com", req.CustomerEmail)
	assert.Equal(t, "http://localhost:3000/payment/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "quote-1", req.Metadata["quoteId"])
	assert.Equal(t, "kakao:42", req.Metadata["userId"])
	assert.Equal(t, resp.Data()["orderId"], req.Metadata["orderId"])
}

func TestGetCheckoutSession(t *testing.T) {
	router := newTestRouter(t)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/session"})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/session?session_id=test_session_123"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	session := resp.Data()["session"].(map[string]interface{})
	assert.Equal(t, "paid", session["payment_status"])
	assert.Equal(t, float64(50000), session["amount_total"])

	usePayments(t, &fakeGateway{sessions: map[string]*services.CheckoutSession{
		"cs_live_1": {ID: "cs_live_1", PaymentStatus: "unpaid", AmountTotal: 100000, Currency: "krw"},
	}})
	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/session?session_id=cs_live_1"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	session = resp.Data()["session"].(map[string]interface{})
	assert.Equal(t, "unpaid", session["payment_status"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/session?session_id=cs_missing"})
	utils.AssertResponse(t, resp, http.StatusInternalServerError, "error")
}

func TestGetPaymentHistoryCursor(t *testing.T) {
	router := newTestRouter(t)
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i, id := range []string{"cs_a", "cs_b", "cs_c"} {
		createPayment(t, models.Payment{
			ID:            id,
			CustomerEmail: "history@example.com",
			Amount:        50000,
			Status:        models.PaymentStatusCompleted,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}
	createPayment(t, models.Payment{ID: "cs_other", CustomerEmail: "other@example.com", Amount: 1000, Status: models.PaymentStatusCompleted})

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/history?email=history@example.com&pageSize=2"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	payments := resp.Data()["payments"].([]interface{})
	require.Len(t, payments, 2)
	assert.Equal(t, "cs_c", payments[0].(map[string]interface{})["id"])
	assert.Equal(t, "cs_b", payments[1].(map[string]interface{})["id"])
	pagination := resp.Data()["pagination"].(map[string]interface{})
	assert.Equal(t, true, pagination["hasNextPage"])
	assert.Equal(t, "cs_b", pagination["lastDocId"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/history?email=history@example.com&pageSize=2&page=2&lastDocId=cs_b"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	payments = resp.Data()["payments"].([]interface{})
	require.Len(t, payments, 1)
	assert.Equal(t, "cs_a", payments[0].(map[string]interface{})["id"])
	pagination = resp.Data()["pagination"].(map[string]interface{})
	assert.Equal(t, false, pagination["hasNextPage"])
	assert.Nil(t, pagination["lastDocId"])
	assert.Equal(t, float64(2), pagination["currentPage"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/history?email=history@example.com&status=failed"})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	assert.Empty(t, resp.Data()["payments"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/payment/history"})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")
}

func TestGetPaymentStats(t *testing.T) {
	router := newTestRouter(t)
	email := "stats@example.com"
	createPayment(t, models.Payment{ID: "cs_1", CustomerEmail: email, Amount: 50000, Status: models.PaymentStatusCompleted})
	createPayment(t, models.Payment{ID: "cs_2", CustomerEmail: email, Amount: 100000, Status: models.PaymentStatusSucceeded})
	createPayment(t, models.Payment{ID: "cs_3", CustomerEmail: email, Amount: 20000, Status: models.PaymentStatusFailed})
	createPayment(t, models.Payment{ID: "cs_old", CustomerEmail: email, Amount: 70000, Status: models.PaymentStatusCompleted,
		CreatedAt: time.Now().AddDate(0, -2, 0)})
	require.NoError(t, config.DB.Create(&models.Refund{PaymentID: "cs_1", Amount: 10000, CustomerEmail: email, Status: "succeeded"}).Error)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/history",
		Body: map[string]string{"email": email, "period": "month"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")

	stats := resp.Data()["statistics"].(map[string]interface{})
	assert.Equal(t, "month", stats["period"])
	assert.Equal(t, float64(150000), stats["totalPayments"])
	assert.Equal(t, float64(10000), stats["totalRefunds"])
	assert.Equal(t, float64(140000), stats["netAmount"])
	assert.Equal(t, float64(2), stats["paymentCount"])
	assert.Equal(t, float64(1), stats["refundCount"])
	counts := stats["statusCounts"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["completed"])
	assert.Equal(t, float64(1), counts["succeeded"])
	assert.Equal(t, float64(1), counts["failed"])
	assert.Equal(t, float64(0), counts["refunded"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/history",
		Body: map[string]string{"email": email, "period": "year"}})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	stats = resp.Data()["statistics"].(map[string]interface{})
	assert.Equal(t, float64(220000), stats["totalPayments"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/history", Body: map[string]string{}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")
}
