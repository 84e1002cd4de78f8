package controllers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

var paymentSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
	"status":     true,
}

// AdminListPayments lists payments with status filter, search, sort and pagination
func AdminListPayments(c *gin.Context) {
	utils.LogInfo("AdminListPayments called")
	p := utils.NewPagination(c)

	q := config.DB.Model(&models.Payment{})
	if status := c.Query("status"); status != "" && status != "all" {
		q = q.Where("status = ?", status)
		utils.LogDebug("Applied status filter: %s", status)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(customer_email) LIKE ? OR LOWER(id) LIKE ?", like, like)
		utils.LogDebug("Applied search filter: %s", search)
	}

	sortField := c.DefaultQuery("sort", "created_at")
	if !paymentSortFields[sortField] {
		sortField = "created_at"
	}
	orderDir := c.DefaultQuery("order", "desc")
	if orderDir != "asc" && orderDir != "desc" {
		orderDir = "desc"
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.LogError("Failed to count payments: %v", err)
		utils.InternalServerError(c, "Failed to fetch payments", nil)
		return
	}
	p.SetTotal(total)

	var payments []models.Payment
	if err := q.Order(sortField + " " + orderDir).Offset(p.Offset).Limit(p.Limit).Find(&payments).Error; err != nil {
		utils.LogError("Failed to fetch payments: %v", err)
		utils.InternalServerError(c, "Failed to fetch payments", nil)
		return
	}

	utils.LogInfo("Successfully retrieved %d payments", len(payments))
	utils.SuccessWithPagination(c, "Payments retrieved successfully", payments, total, p.Page, p.Limit)
}

// AdminGetPayment returns a payment with its refunds
func AdminGetPayment(c *gin.Context) {
	utils.LogInfo("AdminGetPayment called")

	var payment models.Payment
	if err := config.DB.First(&payment, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Payment not found")
			return
		}
		utils.LogError("Failed to fetch payment %s: %v", c.Param("id"), err)
		utils.InternalServerError(c, "Failed to fetch payment", nil)
		return
	}

	var refunds []models.Refund
	if err := config.DB.Where("payment_id = ?", payment.ID).Order("created_at DESC").Find(&refunds).Error; err != nil {
		utils.LogError("Failed to fetch refunds for %s: %v", payment.ID, err)
		utils.InternalServerError(c, "Failed to fetch payment", nil)
		return
	}

	utils.Success(c, "Payment retrieved successfully", gin.H{
		"payment": payment,
		"refunds": refunds,
	})
}
