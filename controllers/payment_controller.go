package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

const testSessionPrefix = "test_session_"

// CheckoutRequest starts a checkout for one catalog product
type CheckoutRequest struct {
	ProductID     string `json:"productId"`
	UserID        string `json:"userId"`
	QuoteID       string `json:"quoteId"`
	CustomerEmail string `json:"customerEmail"`
}

// PaymentStatsRequest asks for a customer's payment statistics over a period
type PaymentStatsRequest struct {
	Email  string `json:"email"`
	Period string `json:"period"`
}

// GetProducts lists the products that can be bought
func GetProducts(c *gin.Context) {
	utils.LogInfo("GetProducts called")
	utils.Success(c, "Products retrieved successfully", gin.H{"products": services.Products()})
}

// CreateCheckoutSession starts a Stripe checkout, or a test session when Stripe is not configured
func CreateCheckoutSession(c *gin.Context) {
	utils.LogInfo("CreateCheckoutSession called")

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if req.ProductID == "" || req.UserID == "" {
		utils.BadRequest(c, utils.ErrMissingFields, nil)
		return
	}
	product, ok := services.LookupProduct(req.ProductID)
	if !ok {
		utils.BadRequest(c, "Unknown product", gin.H{"productId": req.ProductID})
		return
	}

	if services.Payments == nil {
		sessionID := testSessionPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10)
		utils.LogInfo("Stripe not configured, created test checkout %s for %s", sessionID, req.UserID)
		utils.CheckoutSessionsCreated.WithLabelValues(product.ID, "test").Inc()
		utils.Success(c, "Test checkout session created", gin.H{
			"sessionId": sessionID,
			"url":       "/payment/success?session_id=" + sessionID,
		})
		return
	}

	if err := services.ValidatePaymentAmount(product.Price); err != nil {
		utils.BadRequest(c, err.Error(), nil)
		return
	}

	cfg := config.Get()
	orderID := services.GenerateOrderID("TG")
	session, err := services.Payments.CreateCheckoutSession(c.Request.Context(), services.CheckoutRequest{
		Product:       product,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		SuccessURL:    cfg.BaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     cfg.BaseURL + "/payment/cancel",
		Metadata: map[string]string{
			"userId":    req.UserID,
			"productId": product.ID,
			"quoteId":   req.QuoteID,
			"orderId":   orderID,
		},
	})
	if err != nil {
		utils.LogError("Failed to create checkout session for %s: %v", req.UserID, err)
		utils.InternalServerError(c, "Failed to create checkout session", nil)
		return
	}

	fee, err := services.CalculatePaymentFee(product.Price, "card")
	if err != nil {
		utils.LogWarn("No fee rate for card payments: %v", err)
	}

	utils.CheckoutSessionsCreated.WithLabelValues(product.ID, "live").Inc()
	services.PublishPaymentEvent(c.Request.Context(), services.PaymentEvent{
		Type:      services.EventCheckoutCreated,
		PaymentID: session.ID,
		Amount:    product.Price,
		Currency:  product.Currency,
		Status:    models.PaymentStatusPending,
		QuoteID:   req.QuoteID,
	})
	utils.LogInfo("Checkout session %s created (order %s)", session.ID, orderID)
	utils.Success(c, "Checkout session created", gin.H{
		"sessionId": session.ID,
		"url":       session.URL,
		"orderId":   orderID,
		"fee":       fee,
	})
}

// GetCheckoutSession returns a checkout session for the success page
func GetCheckoutSession(c *gin.Context) {
	utils.LogInfo("GetCheckoutSession called")

	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.BadRequest(c, "session_id is required", nil)
		return
	}

	if strings.HasPrefix(sessionID, testSessionPrefix) || services.Payments == nil {
		utils.Success(c, "Session retrieved successfully", gin.H{"session": gin.H{
			"id":                   sessionID,
			"amount_total":         50000,
			"currency":             "krw",
			"payment_status":       "paid",
			"created":              time.Now().Unix(),
			"payment_method_types": []string{"card"},
		}})
		return
	}

	session, err := services.Payments.GetCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		utils.LogError("Failed to retrieve session %s: %v", sessionID, err)
		utils.InternalServerError(c, "Failed to retrieve session", nil)
		return
	}
	utils.Success(c, "Session retrieved successfully", gin.H{"session": session})
}

// GetPaymentHistory lists a customer's payments, newest first, with cursor pagination
func GetPaymentHistory(c *gin.Context) {
	utils.LogInfo("GetPaymentHistory called")

	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		utils.BadRequest(c, utils.ErrEmailRequired, nil)
		return
	}
	page := utils.QueryInt(c, "page", 1)
	pageSize := utils.QueryInt(c, "pageSize", utils.DefaultPaginationLimit)
	if pageSize > utils.MaxPaginationLimit {
		pageSize = utils.MaxPaginationLimit
	}

	q := config.DB.Where("customer_email = ?", email)
	if status := c.Query("status"); status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}

	if lastDocID := c.Query("lastDocId"); lastDocID != "" {
		var cursor models.Payment
		err := config.DB.Select("id", "created_at").First(&cursor, "id = ?", lastDocID).Error
		if err == nil {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Failed to load payment cursor %s: %v", lastDocID, err)
			utils.InternalServerError(c, "Failed to fetch payment history", nil)
			return
		}
	}

	var payments []models.Payment
	if err := q.Order("created_at DESC").Order("id DESC").Limit(pageSize).Find(&payments).Error; err != nil {
		utils.LogError("Failed to fetch payments for %s: %v", email, err)
		utils.InternalServerError(c, "Failed to fetch payment history", nil)
		return
	}

	hasNextPage := len(payments) == pageSize
	var lastDocID interface{}
	if hasNextPage {
		lastDocID = payments[len(payments)-1].ID
	}

	utils.Success(c, "Payment history retrieved successfully", gin.H{
		"payments": payments,
		"pagination": gin.H{
			"currentPage": page,
			"pageSize":    pageSize,
			"hasNextPage": hasNextPage,
			"total":       len(payments),
			"lastDocId":   lastDocID,
		},
	})
}

// periodStart returns the beginning of a week, month or year window ending at now
func periodStart(period string, now time.Time) (string, time.Time) {
	switch period {
	case "week":
		return period, now.AddDate(0, 0, -7)
	case "year":
		return period, now.AddDate(-1, 0, 0)
	default:
		return "month", now.AddDate(0, -1, 0)
	}
}

// GetPaymentStats summarises a customer's payments and refunds over a period
func GetPaymentStats(c *gin.Context) {
	utils.LogInfo("GetPaymentStats called")

	var req PaymentStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		utils.BadRequest(c, utils.ErrEmailRequired, nil)
		return
	}

	now := time.Now()
	period, start := periodStart(req.Period, now)

	var payments []models.Payment
	if err := config.DB.Where("customer_email = ? AND created_at >= ?", req.Email, start).Find(&payments).Error; err != nil {
		utils.LogError("Failed to fetch payments for stats: %v", err)
		utils.InternalServerError(c, "Failed to calculate statistics", nil)
		return
	}

	var refunds []models.Refund
	if err := config.DB.Where("customer_email = ? AND created_at >= ?", req.Email, start).Find(&refunds).Error; err != nil {
		utils.LogError("Failed to fetch refunds for stats: %v", err)
		utils.InternalServerError(c, "Failed to calculate statistics", nil)
		return
	}

	statusCounts := map[string]int{
		models.PaymentStatusSucceeded:         0,
		models.PaymentStatusCompleted:         0,
		models.PaymentStatusFailed:            0,
		models.PaymentStatusRefunded:          0,
		models.PaymentStatusPartiallyRefunded: 0,
	}
	var totalPayments, totalRefunds int64
	paymentCount := 0
	for _, p := range payments {
		if _, ok := statusCounts[p.Status]; ok {
			statusCounts[p.Status]++
		}
		if p.IsPaid() {
			totalPayments += p.Amount
			paymentCount++
		}
	}
	for _, r := range refunds {
		totalRefunds += r.Amount
	}

	utils.Success(c, "Payment statistics retrieved successfully", gin.H{"statistics": gin.H{
		"period":        period,
		"totalPayments": totalPayments,
		"totalRefunds":  totalRefunds,
		"netAmount":     totalPayments - totalRefunds,
		"paymentCount":  paymentCount,
		"refundCount":   len(refunds),
		"statusCounts":  statusCounts,
		"startDate":     start.UTC().Format(time.RFC3339),
		"endDate":       now.UTC().Format(time.RFC3339),
	}})
}
