package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

const testWebhookSecret = "whsec_test"

func postWebhook(t *testing.T, router http.Handler, payload string) utils.TestResponse {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: testWebhookSecret})
	return utils.MakeTestRequest(t, router, utils.TestRequest{
		Method:  "POST",
		Path:    "/api/payment/webhook",
		Body:    signed.Payload,
		Headers: map[string]string{"Stripe-Signature": signed.Header},
	})
}

func stripeEvent(id, eventType, object string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":%s}}`, id, eventType, object)
}

func checkoutCompleted(quoteID string) string {
	return stripeEvent("evt_checkout", "checkout.session.completed", fmt.Sprintf(`{
		"id": "cs_test_hook",
		"object": "checkout.session",
		"customer_email": "hook@example.com",
		"amount_total": 50000,
		"currency": "krw",
		"status": "complete",
		"payment_status": "paid",
		"payment_intent": "pi_hook",
		"payment_method_types": ["card"],
		"metadata": {"quoteId": %q, "userId": "google:9"}
	}`, quoteID))
}

func TestStripeWebhookRejects(t *testing.T) {
	router := newTestRouter(t)

	usePayments(t, nil)
	resp := postWebhook(t, router, `{}`)
	utils.AssertResponse(t, resp, http.StatusServiceUnavailable, "error")

	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/webhook", Body: []byte(`{}`)})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "POST", Path: "/api/payment/webhook", Body: []byte(`{}`),
		Headers: map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"}})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	huge := `{"pad":"` + strings.Repeat("x", int(utils.MaxWebhookBodyBytes)) + `"}`
	resp = postWebhook(t, router, huge)
	utils.AssertResponse(t, resp, http.StatusRequestEntityTooLarge, "error")

	usePayments(t, services.NewStripeGateway("sk_test_dummy", ""))
	resp = postWebhook(t, router, `{}`)
	utils.AssertResponse(t, resp, http.StatusServiceUnavailable, "error")
}

func TestStripeWebhookCheckoutCompleted(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))

	quote := models.Quote{Name: "홍길동", Email: "hook@example.com", Destination: "서울", Adults: 1, Status: models.QuoteStatusApproved}
	require.NoError(t, config.DB.Create(&quote).Error)

	resp := postWebhook(t, router, checkoutCompleted(quote.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Raw))
	assert.Equal(t, true, resp.Body["received"])

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_test_hook").Error)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, int64(50000), payment.Amount)
	assert.Equal(t, "hook@example.com", payment.CustomerEmail)
	assert.Equal(t, "pi_hook", payment.StripePaymentIntentID)
	assert.Equal(t, "card", payment.PaymentMethod)
	assert.Equal(t, quote.ID, payment.Metadata["quoteId"])
	assert.NotNil(t, payment.PaidAt)

	var updated models.Quote
	require.NoError(t, config.DB.First(&updated, "id = ?", quote.ID).Error)
	assert.Equal(t, models.QuoteStatusCompleted, updated.Status)
	assert.Equal(t, "paid", updated.PaymentStatus)
	assert.Equal(t, "cs_test_hook", updated.PaymentID)

	var emails int64
	config.DB.Model(&models.EmailNotificationLog{}).Where("type = ? AND user_email = ?", models.EmailPaymentSuccess, "hook@example.com").Count(&emails)
	assert.Equal(t, int64(1), emails)

	// redelivery leaves the paid payment alone
	resp = postWebhook(t, router, checkoutCompleted(quote.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count int64
	config.DB.Model(&models.Payment{}).Count(&count)
	assert.Equal(t, int64(1), count)
	config.DB.Model(&models.EmailNotificationLog{}).Where("type = ? AND user_email = ?", models.EmailPaymentSuccess, "hook@example.com").Count(&emails)
	assert.Equal(t, int64(1), emails)
}

func TestStripeWebhookRedeliveryAfterRefund(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))

	quote := models.Quote{Name: "홍길동", Email: "hook@example.com", Destination: "제주", Adults: 2, Status: models.QuoteStatusApproved}
	require.NoError(t, config.DB.Create(&quote).Error)

	resp := postWebhook(t, router, checkoutCompleted(quote.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postWebhook(t, router, stripeEvent("evt_refund_all", "charge.refunded", `{
		"id": "ch_hook",
		"object": "charge",
		"payment_intent": "pi_hook",
		"amount_refunded": 50000,
		"refunded": true,
		"refunds": {"object": "list", "data": [{"id": "re_hook", "object": "refund"}]}
	}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// late and repeated deliveries of earlier events
	postWebhook(t, router, checkoutCompleted(quote.ID))
	postWebhook(t, router, stripeEvent("evt_late_ok", "payment_intent.succeeded",
		`{"id": "pi_hook", "object": "payment_intent", "metadata": {"sessionId": "cs_test_hook"}}`))
	postWebhook(t, router, stripeEvent("evt_late_fail", "payment_intent.payment_failed",
		`{"id": "pi_hook", "object": "payment_intent", "metadata": {"sessionId": "cs_test_hook"}}`))

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_test_hook").Error)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(50000), payment.RefundAmount)

	var stored models.Quote
	require.NoError(t, config.DB.First(&stored, "id = ?", quote.ID).Error)
	assert.Equal(t, models.QuoteStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)

	var emails int64
	config.DB.Model(&models.EmailNotificationLog{}).Where("type = ?", models.EmailPaymentSuccess).Count(&emails)
	assert.Equal(t, int64(1), emails)
	config.DB.Model(&models.EmailNotificationLog{}).Where("type = ?", models.EmailPaymentFailed).Count(&emails)
	assert.Equal(t, int64(0), emails)
}

func TestStripeWebhookSucceededBeforeCheckout(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))

	resp := postWebhook(t, router, checkoutCompleted(""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	postWebhook(t, router, stripeEvent("evt_ok", "payment_intent.succeeded",
		`{"id": "pi_hook", "object": "payment_intent", "metadata": {"sessionId": "cs_test_hook"}}`))

	// a redelivered checkout does not move a succeeded payment back to completed
	postWebhook(t, router, checkoutCompleted(""))

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_test_hook").Error)
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.NotNil(t, payment.PaidAt)
}

func TestStripeWebhookIntentEvents(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))
	createPayment(t, models.Payment{ID: "cs_intent", CustomerEmail: "intent@example.com", Amount: 30000, Status: models.PaymentStatusPending})

	resp := postWebhook(t, router, stripeEvent("evt_fail", "payment_intent.payment_failed", `{
		"id": "pi_intent",
		"object": "payment_intent",
		"metadata": {"sessionId": "cs_intent"},
		"last_payment_error": {"message": "Your card was declined."}
	}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_intent").Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "Your card was declined.", payment.FailureReason)
	assert.Equal(t, "pi_intent", payment.StripePaymentIntentID)

	// found by the stored intent id this time
	resp = postWebhook(t, router, stripeEvent("evt_ok", "payment_intent.succeeded", `{"id": "pi_intent", "object": "payment_intent"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_intent").Error)
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)

	// unknown intents are acknowledged
	resp = postWebhook(t, router, stripeEvent("evt_unknown", "payment_intent.succeeded", `{"id": "pi_nobody", "object": "payment_intent"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStripeWebhookChargeRefunded(t *testing.T) {
	router := newTestRouter(t)
	usePayments(t, services.NewStripeGateway("sk_test_dummy", testWebhookSecret))
	createPayment(t, models.Payment{ID: "cs_charge", CustomerEmail: "charge@example.com", Amount: 50000,
		Status: models.PaymentStatusCompleted, StripePaymentIntentID: "pi_charge"})

	charge := func(refunded int64, full bool) string {
		return stripeEvent("evt_refund", "charge.refunded", fmt.Sprintf(`{
			"id": "ch_1",
			"object": "charge",
			"payment_intent": "pi_charge",
			"amount_refunded": %d,
			"refunded": %t,
			"refunds": {"object": "list", "data": [{"id": "re_dash", "object": "refund"}]}
		}`, refunded, full))
	}

	resp := postWebhook(t, router, charge(20000, false))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payment models.Payment
	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_charge").Error)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, payment.Status)
	assert.Equal(t, int64(20000), payment.RefundAmount)

	// the same total again records nothing new
	postWebhook(t, router, charge(20000, false))
	var refunds []models.Refund
	require.NoError(t, config.DB.Where("payment_id = ?", "cs_charge").Find(&refunds).Error)
	require.Len(t, refunds, 1)
	assert.Equal(t, models.RefundTypeExternal, refunds[0].RefundType)
	assert.Equal(t, "re_dash", refunds[0].StripeRefundID)

	postWebhook(t, router, charge(50000, true))
	require.NoError(t, config.DB.Where("payment_id = ?", "cs_charge").Find(&refunds).Error)
	require.Len(t, refunds, 2)
	assert.Equal(t, int64(50000), refunds[0].Amount+refunds[1].Amount)

	require.NoError(t, config.DB.First(&payment, "id = ?", "cs_charge").Error)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(50000), payment.RefundAmount)
}
