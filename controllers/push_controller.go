package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

// PushSubscribeRequest is the browser's PushSubscription plus who it belongs to
type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	UserEmail string `json:"userEmail"`
	UserID    string `json:"userId"`
}

// PushUnsubscribeRequest identifies a subscription to switch off or on again
type PushUnsubscribeRequest struct {
	Endpoint  string `json:"endpoint"`
	UserEmail string `json:"userEmail"`
	UserID    string `json:"userId"`
}

// PushSendRequest is an admin broadcast
type PushSendRequest struct {
	Title              string              `json:"title"`
	Message            string              `json:"message"`
	Tag                string              `json:"tag"`
	Data               models.JSONMap      `json:"data"`
	Actions            []models.PushAction `json:"actions"`
	RequireInteraction bool                `json:"requireInteraction"`
	TargetUsers        models.PushTarget   `json:"targetUsers"`
	ScheduleAt         string              `json:"scheduleAt"`
}

// Subscribe stores a push subscription, refreshing it when the endpoint is already known
func Subscribe(c *gin.Context) {
	utils.LogInfo("Subscribe called")

	var req PushSubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		utils.BadRequest(c, "Invalid subscription data", nil)
		return
	}
	if req.UserEmail == "" && req.UserID == "" {
		utils.BadRequest(c, "userEmail or userId is required", nil)
		return
	}

	var sub models.PushSubscription
	err := config.DB.Where("endpoint = ?", req.Endpoint).First(&sub).Error
	switch {
	case err == nil:
		now := time.Now()
		sub.P256dh = req.Keys.P256dh
		sub.Auth = req.Keys.Auth
		sub.UserEmail = req.UserEmail
		sub.UserID = req.UserID
		if !sub.IsActive {
			sub.ReactivatedAt = &now
		}
		sub.IsActive = true
		if err := config.DB.Save(&sub).Error; err != nil {
			utils.LogError("Failed to update subscription: %v", err)
			utils.InternalServerError(c, "Failed to save subscription", nil)
			return
		}
		utils.Success(c, "Subscription updated successfully", gin.H{"id": sub.ID})
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.PushSubscription{
			Endpoint:  req.Endpoint,
			P256dh:    req.Keys.P256dh,
			Auth:      req.Keys.Auth,
			UserEmail: req.UserEmail,
			UserID:    req.UserID,
			IsActive:  true,
		}
		if err := config.DB.Create(&sub).Error; err != nil {
			utils.LogError("Failed to create subscription: %v", err)
			utils.InternalServerError(c, "Failed to save subscription", nil)
			return
		}
		utils.Created(c, "Subscription saved successfully", gin.H{"id": sub.ID})
	default:
		utils.LogError("Failed to look up subscription: %v", err)
		utils.InternalServerError(c, "Failed to save subscription", nil)
	}
}

// GetSubscriptions lists active subscriptions of a user
func GetSubscriptions(c *gin.Context) {
	utils.LogInfo("GetSubscriptions called")

	q := config.DB.Where("is_active = ?", true)
	if email := c.Query("userEmail"); email != "" {
		q = q.Where("user_email = ?", email)
	} else if userID := c.Query("userId"); userID != "" {
		q = q.Where("user_id = ?", userID)
	} else {
		utils.BadRequest(c, "userEmail or userId is required", nil)
		return
	}

	var subs []models.PushSubscription
	if err := q.Order("created_at DESC").Find(&subs).Error; err != nil {
		utils.LogError("Failed to fetch subscriptions: %v", err)
		utils.InternalServerError(c, "Failed to fetch subscriptions", nil)
		return
	}
	utils.Success(c, "Subscriptions retrieved successfully", gin.H{
		"subscriptions": subs,
		"count":         len(subs),
	})
}

func findSubscription(req PushUnsubscribeRequest) (*models.PushSubscription, error) {
	q := config.DB.Where("endpoint = ?", req.Endpoint)
	if req.UserEmail != "" {
		q = q.Where("user_email = ?", req.UserEmail)
	}
	if req.UserID != "" {
		q = q.Where("user_id = ?", req.UserID)
	}
	var sub models.PushSubscription
	if err := q.First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func bindUnsubscribe(c *gin.Context) (*models.PushSubscription, bool) {
	var req PushUnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Endpoint == "" {
		utils.BadRequest(c, "Endpoint is required", nil)
		return nil, false
	}
	sub, err := findSubscription(req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Subscription not found")
			return nil, false
		}
		utils.LogError("Failed to look up subscription: %v", err)
		utils.InternalServerError(c, "Failed to update subscription", nil)
		return nil, false
	}
	return sub, true
}

// Unsubscribe deactivates a subscription; the row is kept for history
func Unsubscribe(c *gin.Context) {
	utils.LogInfo("Unsubscribe called")

	sub, ok := bindUnsubscribe(c)
	if !ok {
		return
	}
	now := time.Now()
	err := config.DB.Model(sub).Updates(map[string]interface{}{
		"is_active":       false,
		"unsubscribed_at": now,
	}).Error
	if err != nil {
		utils.LogError("Failed to deactivate subscription %s: %v", sub.ID, err)
		utils.InternalServerError(c, "Failed to unsubscribe", nil)
		return
	}
	utils.Success(c, "Unsubscribed successfully", gin.H{"id": sub.ID})
}

// Resubscribe reactivates a subscription
func Resubscribe(c *gin.Context) {
	utils.LogInfo("Resubscribe called")

	sub, ok := bindUnsubscribe(c)
	if !ok {
		return
	}
	now := time.Now()
	err := config.DB.Model(sub).Updates(map[string]interface{}{
		"is_active":      true,
		"reactivated_at": now,
	}).Error
	if err != nil {
		utils.LogError("Failed to reactivate subscription %s: %v", sub.ID, err)
		utils.InternalServerError(c, "Failed to resubscribe", nil)
		return
	}
	utils.Success(c, "Resubscribed successfully", gin.H{"id": sub.ID})
}

// targetSubscriptions resolves the active subscriptions a broadcast goes to
func targetSubscriptions(target models.PushTarget) ([]models.PushSubscription, error) {
	q := config.DB.Where("is_active = ?", true)
	switch {
	case len(target.UserEmails) > 0:
		q = q.Where("user_email IN ?", target.UserEmails)
	case len(target.UserIDs) > 0:
		q = q.Where("user_id IN ?", target.UserIDs)
	}
	var subs []models.PushSubscription
	err := q.Find(&subs).Error
	return subs, err
}

// SendPush broadcasts a push notification to the targeted subscriptions
func SendPush(c *gin.Context) {
	utils.LogInfo("SendPush called")

	if services.Push == nil {
		utils.ServiceUnavailable(c, utils.ErrPushNotConfigured)
		return
	}

	var req PushSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		utils.BadRequest(c, "Title and message are required", nil)
		return
	}

	subs, err := targetSubscriptions(req.TargetUsers)
	if err != nil {
		utils.LogError("Failed to fetch subscriptions: %v", err)
		utils.InternalServerError(c, "Failed to send push notification", nil)
		return
	}
	if len(subs) == 0 {
		utils.NotFound(c, "No active subscriptions found")
		return
	}

	var scheduledAt *time.Time
	if req.ScheduleAt != "" {
		if t, err := time.Parse(time.RFC3339, req.ScheduleAt); err == nil {
			scheduledAt = &t
		}
	}

	ctx := c.Request.Context()
	pushLog := models.PushNotificationLog{
		Title:              req.Title,
		Message:            req.Message,
		Tag:                req.Tag,
		Data:               req.Data,
		Actions:            req.Actions,
		RequireInteraction: req.RequireInteraction,
		TargetUsers:        req.TargetUsers,
		ScheduledAt:        scheduledAt,
		SentAt:             time.Now(),
		TargetCount:        len(subs),
		Status:             models.DeliverySending,
	}
	if err := config.DB.WithContext(ctx).Create(&pushLog).Error; err != nil {
		utils.LogError("Failed to record push log: %v", err)
		utils.InternalServerError(c, "Failed to send push notification", nil)
		return
	}

	results, err := services.Broadcast(ctx, services.Push, subs, services.PushMessage{
		Title:              req.Title,
		Body:               req.Message,
		Tag:                req.Tag,
		Data:               req.Data,
		Actions:            req.Actions,
		RequireInteraction: req.RequireInteraction,
	})
	if err != nil {
		utils.LogError("Push broadcast failed: %v", err)
		utils.InternalServerError(c, "Failed to send push notification", nil)
		return
	}

	var gone []string
	for i, res := range results {
		if res.Success {
			pushLog.SuccessfulCount++
			utils.PushDeliveries.WithLabelValues("sent").Inc()
			continue
		}
		pushLog.FailedCount++
		utils.PushDeliveries.WithLabelValues("failed").Inc()
		if services.SubscriptionGone(res.StatusCode) {
			gone = append(gone, subs[i].ID)
		}
	}

	if len(gone) > 0 {
		err := config.DB.WithContext(ctx).Model(&models.PushSubscription{}).Where("id IN ?", gone).
			Updates(map[string]interface{}{"is_active": false, "unsubscribed_at": time.Now()}).Error
		if err != nil {
			utils.LogError("Failed to deactivate expired subscriptions: %v", err)
		} else {
			utils.LogInfo("Deactivated %d expired push subscriptions", len(gone))
		}
	}

	completed := time.Now()
	pushLog.Results = results
	pushLog.CompletedAt = &completed
	pushLog.Status = models.DeliveryCompleted
	if err := config.DB.WithContext(ctx).Save(&pushLog).Error; err != nil {
		utils.LogError("Failed to update push log %s: %v", pushLog.ID, err)
	}

	utils.LogInfo("Push %s delivered to %d of %d subscriptions", pushLog.ID, pushLog.SuccessfulCount, len(subs))
	utils.Success(c, "Push notification sent", gin.H{
		"id":              pushLog.ID,
		"targetCount":     len(subs),
		"successfulCount": pushLog.SuccessfulCount,
		"failedCount":     pushLog.FailedCount,
	})
}

// GetPushLogs lists push broadcasts, newest first
func GetPushLogs(c *gin.Context) {
	utils.LogInfo("GetPushLogs called")

	q := config.DB.Model(&models.PushNotificationLog{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	limit := utils.QueryInt(c, "limit", utils.DefaultListLimit)
	if limit > utils.MaxPaginationLimit {
		limit = utils.MaxPaginationLimit
	}

	var logs []models.PushNotificationLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		utils.LogError("Failed to fetch push logs: %v", err)
		utils.InternalServerError(c, "Failed to fetch push logs", nil)
		return
	}
	utils.Success(c, "Push logs retrieved successfully", gin.H{"logs": logs, "total": len(logs)})
}

// GetVAPIDPublicKey returns the key browsers subscribe with
func GetVAPIDPublicKey(c *gin.Context) {
	utils.LogInfo("GetVAPIDPublicKey called")

	if services.Push == nil {
		utils.ServiceUnavailable(c, utils.ErrPushNotConfigured)
		return
	}
	utils.Success(c, "VAPID public key retrieved", gin.H{"publicKey": services.Push.PublicKey()})
}
