package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

var errRefundExceedsPayment = errors.New("refund would exceed the payment amount")

// RefundRequest asks for money back on a payment. Amount 0 on a full refund means
// whatever has not been refunded yet.
type RefundRequest struct {
	PaymentID  string `json:"paymentId"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
	RefundType string `json:"refundType"`
}

// ProcessRefund refunds a payment in full
func ProcessRefund(c *gin.Context) {
	utils.LogInfo("ProcessRefund called")
	handleRefund(c, false)
}

// PartialRefund refunds part of a payment
func PartialRefund(c *gin.Context) {
	utils.LogInfo("PartialRefund called")
	handleRefund(c, true)
}

func handleRefund(c *gin.Context, partial bool) {
	if services.Payments == nil {
		utils.ServiceUnavailable(c, utils.ErrStripeNotConfigured)
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if req.PaymentID == "" || req.Reason == "" || (partial && req.Amount <= 0) || req.Amount < 0 {
		utils.BadRequest(c, utils.ErrMissingFields, nil)
		return
	}

	var payment models.Payment
	if err := config.DB.First(&payment, "id = ?", req.PaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Payment not found")
			return
		}
		utils.LogError("Failed to load payment %s: %v", req.PaymentID, err)
		utils.InternalServerError(c, "Failed to process refund", nil)
		return
	}

	amount, err := refundableAmount(&payment, req.Amount, partial)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	req.Amount = amount

	ctx := c.Request.Context()
	intentID, err := paymentIntentFor(ctx, &payment)
	if err != nil {
		utils.LogError("No payment intent for %s: %v", payment.ID, err)
		utils.BadRequest(c, "Payment cannot be refunded", err.Error())
		return
	}

	refundType := req.RefundType
	if partial {
		refundType = models.RefundTypePartial
	} else if refundType == "" {
		refundType = models.RefundTypeRequestedByCustomer
	}

	result, err := services.Payments.CreateRefund(ctx, services.RefundRequest{
		PaymentIntentID: intentID,
		Amount:          req.Amount,
		Reason:          refundType,
		Metadata: map[string]string{
			"paymentId":  payment.ID,
			"reason":     req.Reason,
			"refundType": refundType,
		},
	})
	if err != nil {
		utils.LogError("Stripe refund failed for %s: %v", payment.ID, err)
		utils.Error(c, http.StatusBadGateway, "Failed to process refund", nil)
		return
	}

	now := time.Now()
	refund := models.Refund{
		PaymentID:      payment.ID,
		Amount:         req.Amount,
		Currency:       payment.Currency,
		Reason:         req.Reason,
		RefundType:     refundType,
		StripeRefundID: result.ID,
		Status:         result.Status,
		CustomerEmail:  payment.CustomerEmail,
		OriginalAmount: payment.Amount,
	}

	// Two admins may refund the same payment at once, so the running total is
	// added in SQL and the row is read back afterwards.
	fields := map[string]interface{}{
		"refund_amount": gorm.Expr("refund_amount + ?", req.Amount),
		"status": gorm.Expr("CASE WHEN refund_amount + ? >= amount THEN ? ELSE ? END",
			req.Amount, models.PaymentStatusRefunded, models.PaymentStatusPartiallyRefunded),
		"refund_reason":            req.Reason,
		"last_refund_id":           result.ID,
		"refunded_at":              now,
		"stripe_payment_intent_id": intentID,
	}
	if !partial {
		fields["refund_id"] = result.ID
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND refund_amount + ? <= amount", payment.ID, req.Amount).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRefundExceedsPayment
		}
		return tx.First(&payment, "id = ?", payment.ID).Error
	})
	if err != nil {
		// The money has moved; the charge.refunded webhook reconciles the records
		utils.LogError("Refund %s issued but not recorded for %s: %v", result.ID, payment.ID, err)
		utils.InternalServerError(c, "Refund issued but could not be recorded", gin.H{"refundId": result.ID})
		return
	}

	if payment.Status == models.PaymentStatusRefunded {
		markQuoteRefunded(ctx, &payment, now)
	}

	utils.RefundsTotal.WithLabelValues(refundType).Inc()
	eventType := services.EventPaymentRefunded
	if payment.Status == models.PaymentStatusPartiallyRefunded {
		eventType = services.EventPaymentPartRefund
	}
	services.PublishPaymentEvent(ctx, services.PaymentEvent{
		Type:          eventType,
		PaymentID:     payment.ID,
		CustomerEmail: payment.CustomerEmail,
		Amount:        req.Amount,
		Currency:      payment.Currency,
		Status:        payment.Status,
		QuoteID:       metadataString(payment.Metadata, "quoteId"),
	})

	if payment.CustomerEmail != "" {
		services.QueueEmailQuiet(ctx, &models.EmailNotificationLog{
			Type:      models.EmailRefundProcessed,
			Title:     "환불이 처리되었습니다",
			Message:   fmt.Sprintf("%s 환불이 처리되었습니다.", services.FormatKRW(req.Amount)),
			UserEmail: payment.CustomerEmail,
			Data: models.JSONMap{
				"paymentId": payment.ID,
				"amount":    req.Amount,
				"reason":    req.Reason,
			},
			Priority: "high",
		})
	}

	utils.LogInfo("Refunded %d of payment %s (%s)", req.Amount, payment.ID, payment.Status)
	utils.Success(c, "Refund processed successfully", gin.H{
		"refundId":     result.ID,
		"amount":       req.Amount,
		"status":       result.Status,
		"paymentId":    payment.ID,
		"refundAmount": payment.RefundAmount,
		"remaining":    payment.Amount - payment.RefundAmount,
	})
}

// refundableAmount resolves the amount to refund against what is left on payment.
// Zero on a full refund means everything that remains.
func refundableAmount(payment *models.Payment, amount int64, partial bool) (int64, error) {
	if payment.Status == models.PaymentStatusRefunded {
		return 0, utils.BadRequestError("Payment has already been refunded", nil)
	}
	remaining := payment.Amount - payment.RefundAmount
	if !partial && amount == 0 {
		amount = remaining
	}
	if partial && amount >= payment.Amount {
		return 0, utils.BadRequestError("Partial refund must be less than the payment amount",
			fmt.Errorf("payment amount is %d", payment.Amount))
	}
	if amount > remaining || amount <= 0 {
		return 0, utils.BadRequestError("Refund amount exceeds the refundable amount",
			fmt.Errorf("refundable amount is %d of %d", remaining, payment.Amount))
	}
	return amount, nil
}

// paymentIntentFor returns the payment intent behind p, looking it up through the
// checkout session when only the session id was stored
func paymentIntentFor(ctx context.Context, p *models.Payment) (string, error) {
	if p.StripePaymentIntentID != "" {
		return p.StripePaymentIntentID, nil
	}
	sessionID := p.StripeSessionID
	if sessionID == "" {
		sessionID = p.ID
	}
	session, err := services.Payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.PaymentIntentID == "" {
		return "", errors.New("checkout session has no payment intent")
	}
	p.StripePaymentIntentID = session.PaymentIntentID
	return session.PaymentIntentID, nil
}

// markQuoteRefunded cancels the quote a fully refunded payment was for
func markQuoteRefunded(ctx context.Context, p *models.Payment, at time.Time) {
	quoteID := metadataString(p.Metadata, "quoteId")
	if quoteID == "" {
		return
	}
	err := config.DB.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", quoteID).Updates(map[string]interface{}{
		"status":         models.QuoteStatusCancelled,
		"payment_status": models.PaymentStatusRefunded,
		"refunded_at":    at,
	}).Error
	if err != nil {
		utils.LogError("Failed to cancel quote %s after refund: %v", quoteID, err)
	}
}

func metadataString(m models.JSONMap, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
