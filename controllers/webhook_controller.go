package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

// StripeWebhook verifies and applies Stripe payment lifecycle events
func StripeWebhook(c *gin.Context) {
	utils.LogInfo("StripeWebhook called")

	if services.Payments == nil {
		utils.ServiceUnavailable(c, utils.ErrStripeNotConfigured)
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		utils.BadRequest(c, "Missing Stripe-Signature header", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(c, http.StatusRequestEntityTooLarge, "Webhook body too large", nil)
			return
		}
		utils.BadRequest(c, "Failed to read request body", nil)
		return
	}

	event, err := services.Payments.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, services.ErrWebhookSecretMissing) {
			utils.ServiceUnavailable(c, "Stripe webhook secret is not configured")
			return
		}
		utils.LogError("Webhook signature verification failed: %v", err)
		utils.BadRequest(c, "Invalid signature", nil)
		return
	}

	utils.WebhookEventsTotal.WithLabelValues(string(event.Type)).Inc()
	if err := handleStripeEvent(c.Request.Context(), event); err != nil {
		utils.LogError("Failed to handle %s event %s: %v", event.Type, event.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func handleStripeEvent(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return errors.New("event has no data")
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return err
		}
		return handleCheckoutCompleted(ctx, &s)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		return handleIntentSucceeded(ctx, &pi)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		return handleIntentFailed(ctx, &pi)

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return err
		}
		return handleChargeRefunded(ctx, &ch)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		utils.LogInfo("Invoice event %s received (%s)", event.Type, event.ID)

	default:
		utils.LogDebug("Unhandled webhook event type %s", event.Type)
	}
	return nil
}

func handleCheckoutCompleted(ctx context.Context, s *stripe.CheckoutSession) error {
	session := services.SessionFromStripe(s)
	if session.CustomerEmail == "" || session.AmountTotal == 0 {
		return fmt.Errorf("session %s has no customer email or amount", session.ID)
	}

	now := time.Now()
	status := models.PaymentStatusPending
	if session.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid) {
		status = models.PaymentStatusCompleted
	}
	method := "card"
	if len(s.PaymentMethodTypes) > 0 {
		method = s.PaymentMethodTypes[0]
	}
	metadata := models.JSONMap{}
	for k, v := range session.Metadata {
		metadata[k] = v
	}

	db := config.DB.WithContext(ctx)
	var payment models.Payment
	err := db.First(&payment, "id = ?", session.ID).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return err
	}
	if !created && !advancesPayment(payment.Status, status) {
		utils.LogInfo("Checkout %s already recorded as %s, keeping it", session.ID, payment.Status)
		return nil
	}

	if created {
		payment = models.Payment{
			ID:                    session.ID,
			CustomerEmail:         session.CustomerEmail,
			Amount:                session.AmountTotal,
			Currency:              session.Currency,
			Status:                status,
			PaymentMethod:         method,
			Metadata:              metadata,
			StripeSessionID:       session.ID,
			StripeCustomerID:      session.CustomerID,
			StripePaymentIntentID: session.PaymentIntentID,
		}
		if status == models.PaymentStatusCompleted {
			payment.PaidAt = &now
		}
		if err := db.Create(&payment).Error; err != nil {
			return err
		}
	} else {
		fields := map[string]interface{}{
			"customer_email":           session.CustomerEmail,
			"amount":                   session.AmountTotal,
			"currency":                 session.Currency,
			"status":                   status,
			"payment_method":           method,
			"stripe_session_id":        session.ID,
			"stripe_customer_id":       session.CustomerID,
			"stripe_payment_intent_id": session.PaymentIntentID,
		}
		if status == models.PaymentStatusCompleted {
			fields["paid_at"] = now
		}
		res := db.Model(&payment).Where("status = ?", payment.Status).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			utils.LogInfo("Checkout %s changed while it was being applied, keeping it", session.ID)
			return nil
		}
	}

	// only the transition to paid touches the quote and the customer
	if status == models.PaymentStatusCompleted {
		if quoteID := session.Metadata["quoteId"]; quoteID != "" {
			err := db.Model(&models.Quote{}).Where("id = ?", quoteID).Updates(map[string]interface{}{
				"status":         models.QuoteStatusCompleted,
				"payment_status": "paid",
				"payment_id":     session.ID,
				"paid_at":        now,
			}).Error
			if err != nil {
				utils.LogError("Failed to mark quote %s paid: %v", quoteID, err)
			}
		}

		services.NotifyQuiet(ctx, &models.Notification{
			Type:      models.NotificationSuccess,
			Title:     "결제 완료",
			Message:   fmt.Sprintf("%s 결제가 완료되었습니다.", services.FormatKRW(session.AmountTotal)),
			UserEmail: session.CustomerEmail,
			Metadata:  models.JSONMap{"paymentId": session.ID, "amount": session.AmountTotal},
		})
		services.QueueEmailQuiet(ctx, &models.EmailNotificationLog{
			Type:      models.EmailPaymentSuccess,
			Title:     "결제가 완료되었습니다",
			Message:   "결제해 주셔서 감사합니다.",
			UserEmail: session.CustomerEmail,
			Data: models.JSONMap{
				"paymentId": session.ID,
				"amount":    session.AmountTotal,
			},
			Priority: "high",
		})
	}
	services.PublishPaymentEvent(ctx, services.PaymentEvent{
		Type:          services.EventPaymentCompleted,
		PaymentID:     session.ID,
		CustomerEmail: session.CustomerEmail,
		Amount:        session.AmountTotal,
		Currency:      session.Currency,
		Status:        status,
		QuoteID:       session.Metadata["quoteId"],
	})
	utils.LogInfo("Checkout %s completed for %s (%s)", session.ID, session.CustomerEmail, status)
	return nil
}

// paymentStages orders payment statuses. Stripe may redeliver events or send them
// out of order, so a webhook only ever moves a payment to a later stage.
var paymentStages = map[string]int{
	models.PaymentStatusPending:           0,
	models.PaymentStatusFailed:            1,
	models.PaymentStatusCompleted:         2,
	models.PaymentStatusSucceeded:         3,
	models.PaymentStatusPartiallyRefunded: 4,
	models.PaymentStatusRefunded:          5,
}

func advancesPayment(current, next string) bool {
	return paymentStages[next] > paymentStages[current]
}

// paymentForIntent finds the payment an intent belongs to: by the sessionId in
// its metadata, then by id, then by the stored intent id
func paymentForIntent(ctx context.Context, pi *stripe.PaymentIntent) (*models.Payment, error) {
	db := config.DB.WithContext(ctx)
	var payment models.Payment
	if sessionID := pi.Metadata["sessionId"]; sessionID != "" {
		err := db.First(&payment, "id = ?", sessionID).Error
		if err == nil {
			return &payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := db.Where("id = ? OR stripe_payment_intent_id = ?", pi.ID, pi.ID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func handleIntentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	payment, err := paymentForIntent(ctx, pi)
	if err != nil {
		return fmt.Errorf("payment for intent %s: %w", pi.ID, err)
	}

	if !advancesPayment(payment.Status, models.PaymentStatusSucceeded) {
		utils.LogInfo("Payment %s is already %s, ignoring succeeded intent %s", payment.ID, payment.Status, pi.ID)
		return nil
	}
	updates := map[string]interface{}{
		"status":                   models.PaymentStatusSucceeded,
		"stripe_payment_intent_id": pi.ID,
	}
	if payment.PaidAt == nil {
		updates["paid_at"] = time.Now()
	}
	res := config.DB.WithContext(ctx).Model(payment).Where("status = ?", payment.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	services.PublishPaymentEvent(ctx, services.PaymentEvent{
		Type:          services.EventPaymentSucceeded,
		PaymentID:     payment.ID,
		CustomerEmail: payment.CustomerEmail,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        models.PaymentStatusSucceeded,
	})
	utils.LogInfo("Payment %s succeeded (intent %s)", payment.ID, pi.ID)
	return nil
}

func handleIntentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	payment, err := paymentForIntent(ctx, pi)
	if err != nil {
		return fmt.Errorf("payment for intent %s: %w", pi.ID, err)
	}

	if !advancesPayment(payment.Status, models.PaymentStatusFailed) {
		utils.LogInfo("Payment %s is already %s, ignoring failed intent %s", payment.ID, payment.Status, pi.ID)
		return nil
	}

	reason := "Unknown error"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	updates := map[string]interface{}{
		"status":                   models.PaymentStatusFailed,
		"stripe_payment_intent_id": pi.ID,
		"failure_reason":           reason,
	}
	res := config.DB.WithContext(ctx).Model(payment).Where("status = ?", payment.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if payment.CustomerEmail != "" {
		services.QueueEmailQuiet(ctx, &models.EmailNotificationLog{
			Type:      models.EmailPaymentFailed,
			Title:     "결제에 실패했습니다",
			Message:   reason,
			UserEmail: payment.CustomerEmail,
			Data:      models.JSONMap{"paymentId": payment.ID, "amount": payment.Amount},
			Priority:  "high",
		})
	}
	services.PublishPaymentEvent(ctx, services.PaymentEvent{
		Type:          services.EventPaymentFailed,
		PaymentID:     payment.ID,
		CustomerEmail: payment.CustomerEmail,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        models.PaymentStatusFailed,
	})
	utils.LogWarn("Payment %s failed: %s", payment.ID, reason)
	return nil
}

// handleChargeRefunded syncs refunds made outside the refund API, e.g. from the
// Stripe dashboard. Only the amount not yet recorded becomes a new Refund.
func handleChargeRefunded(ctx context.Context, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
		return fmt.Errorf("charge %s has no payment intent", ch.ID)
	}

	db := config.DB.WithContext(ctx)
	var payment models.Payment
	if err := db.First(&payment, "stripe_payment_intent_id = ? OR id = ?", ch.PaymentIntent.ID, ch.PaymentIntent.ID).Error; err != nil {
		return fmt.Errorf("payment for intent %s: %w", ch.PaymentIntent.ID, err)
	}

	delta := ch.AmountRefunded - payment.RefundAmount
	if delta <= 0 {
		utils.LogDebug("Charge %s refund already recorded", ch.ID)
		return nil
	}

	now := time.Now()
	status := models.PaymentStatusPartiallyRefunded
	if ch.Refunded || ch.AmountRefunded >= payment.Amount {
		status = models.PaymentStatusRefunded
	}

	var stripeRefundID string
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		stripeRefundID = ch.Refunds.Data[0].ID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		refund := models.Refund{
			PaymentID:      payment.ID,
			Amount:         delta,
			Currency:       payment.Currency,
			Reason:         "Refunded outside the admin console",
			RefundType:     models.RefundTypeExternal,
			StripeRefundID: stripeRefundID,
			Status:         "succeeded",
			CustomerEmail:  payment.CustomerEmail,
			OriginalAmount: payment.Amount,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		return tx.Model(&payment).Updates(map[string]interface{}{
			"status":         status,
			"refund_amount":  ch.AmountRefunded,
			"refunded_at":    now,
			"last_refund_id": stripeRefundID,
		}).Error
	})
	if err != nil {
		return err
	}

	if status == models.PaymentStatusRefunded {
		markQuoteRefunded(ctx, &payment, now)
	}
	utils.RefundsTotal.WithLabelValues(models.RefundTypeExternal).Inc()
	utils.LogInfo("Recorded external refund of %d for payment %s", delta, payment.ID)
	return nil
}
