package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

// NotificationRequest creates an in-app notification
type NotificationRequest struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	UserID    string         `json:"userId"`
	UserEmail string         `json:"userEmail"`
	Metadata  models.JSONMap `json:"metadata"`
}

// NotificationUpdateRequest marks a notification read or unread
type NotificationUpdateRequest struct {
	ID     string `json:"id"`
	IsRead *bool  `json:"isRead"`
}

// EmailNotificationRequest sends or schedules a notification email
type EmailNotificationRequest struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	UserEmail  string         `json:"userEmail"`
	UserName   string         `json:"userName"`
	UserID     string         `json:"userId"`
	Data       models.JSONMap `json:"data"`
	Priority   string         `json:"priority"`
	ScheduleAt string         `json:"scheduleAt"`
}

func isNotificationType(t string) bool {
	switch t {
	case models.NotificationSuccess, models.NotificationError, models.NotificationWarning, models.NotificationInfo:
		return true
	}
	return false
}

// CreateNotification stores a notification and pushes it to the user's open connections
func CreateNotification(c *gin.Context) {
	utils.LogInfo("CreateNotification called")

	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if req.Type == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		utils.BadRequest(c, utils.ErrMissingFields, nil)
		return
	}
	if !isNotificationType(req.Type) {
		utils.BadRequest(c, "Invalid notification type", gin.H{"type": req.Type})
		return
	}

	n := models.Notification{
		Type:      req.Type,
		Title:     utils.SanitizeString(req.Title),
		Message:   utils.SanitizeString(req.Message),
		UserID:    req.UserID,
		UserEmail: strings.TrimSpace(req.UserEmail),
		Metadata:  req.Metadata,
	}
	if err := services.Notify(c.Request.Context(), &n); err != nil {
		utils.LogError("Failed to create notification: %v", err)
		utils.InternalServerError(c, "Failed to create notification", nil)
		return
	}
	utils.Created(c, "Notification created successfully", gin.H{"id": n.ID, "notification": n})
}

// GetNotifications lists the notifications of userEmail, newest first
func GetNotifications(c *gin.Context) {
	utils.LogInfo("GetNotifications called")

	email := strings.TrimSpace(c.Query("userEmail"))
	if email == "" {
		utils.BadRequest(c, utils.ErrEmailRequired, nil)
		return
	}
	if ok, msg := utils.ValidateEmail(email); !ok {
		utils.BadRequest(c, msg, nil)
		return
	}
	listNotifications(c, email)
}

// AdminGetNotifications lists the admin channel, or one user's notifications
// when userEmail is given
func AdminGetNotifications(c *gin.Context) {
	utils.LogInfo("AdminGetNotifications called")
	listNotifications(c, strings.TrimSpace(c.Query("userEmail")))
}

// listNotifications lists the notifications stored for email. Admin channel
// notifications are the ones stored without an email.
func listNotifications(c *gin.Context, email string) {
	q := config.DB.Model(&models.Notification{}).Where("user_email = ?", email)
	if isRead := c.Query("isRead"); isRead != "" {
		read, err := strconv.ParseBool(isRead)
		if err != nil {
			utils.BadRequest(c, "isRead must be true or false", nil)
			return
		}
		q = q.Where("is_read = ?", read)
	}
	limit := utils.QueryInt(c, "limit", utils.DefaultListLimit)
	if limit > utils.MaxPaginationLimit {
		limit = utils.MaxPaginationLimit
	}

	var notifications []models.Notification
	if err := q.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		utils.LogError("Failed to fetch notifications: %v", err)
		utils.InternalServerError(c, "Failed to fetch notifications", nil)
		return
	}
	utils.Success(c, "Notifications retrieved successfully", gin.H{
		"notifications": notifications,
		"total":         len(notifications),
	})
}

// UpdateNotification sets the read flag, defaulting to read
func UpdateNotification(c *gin.Context) {
	utils.LogInfo("UpdateNotification called")

	var req NotificationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		utils.BadRequest(c, utils.ErrIDRequired, nil)
		return
	}
	isRead := true
	if req.IsRead != nil {
		isRead = *req.IsRead
	}

	result := config.DB.Model(&models.Notification{}).Where("id = ?", req.ID).Update("is_read", isRead)
	if result.Error != nil {
		utils.LogError("Failed to update notification %s: %v", req.ID, result.Error)
		utils.InternalServerError(c, "Failed to update notification", nil)
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"id": req.ID, "isRead": isRead})
}

// DeleteNotification removes a notification
func DeleteNotification(c *gin.Context) {
	utils.LogInfo("DeleteNotification called")

	id := c.Query("id")
	if id == "" {
		utils.BadRequest(c, utils.ErrIDRequired, nil)
		return
	}

	result := config.DB.Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		utils.LogError("Failed to delete notification %s: %v", id, result.Error)
		utils.InternalServerError(c, "Failed to delete notification", nil)
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}
	utils.Success(c, utils.MsgDeleteSuccess, gin.H{"id": id})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowed := config.Get().CORSOrigin
		return origin == "" || allowed == "" || allowed == "*" || origin == allowed
	},
}

const wsPongWait = 60 * time.Second

// NotificationSocket streams notifications over a websocket. Admins receive the
// admin channel, everyone else the notifications of userEmail.
func NotificationSocket(c *gin.Context) {
	utils.LogInfo("NotificationSocket called")

	key := strings.TrimSpace(c.Query("userEmail"))
	if _, isAdmin := c.Get("admin"); isAdmin {
		key = services.AdminChannel
	} else if key == "" {
		utils.BadRequest(c, utils.ErrEmailRequired, nil)
		return
	} else if ok, msg := utils.ValidateEmail(key); !ok {
		// only an email can name a user feed, never the admin channel
		utils.BadRequest(c, msg, nil)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		utils.LogError("Websocket upgrade failed: %v", err)
		return
	}

	conn := services.Realtime.Add(key, ws)
	defer services.Realtime.Remove(conn)

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
		conn.Touch()
	}
}

// SendEmailNotification records an email and sends it now, or leaves it for the
// dispatcher when scheduleAt lies in the future
func SendEmailNotification(c *gin.Context) {
	utils.LogInfo("SendEmailNotification called")

	var req EmailNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	if req.Type == "" || req.Title == "" || req.Message == "" || req.UserEmail == "" {
		utils.BadRequest(c, utils.ErrMissingFields, nil)
		return
	}
	if !models.IsEmailType(req.Type) {
		utils.BadRequest(c, "Invalid email type", gin.H{"type": req.Type})
		return
	}
	if ok, msg := utils.ValidateEmail(req.UserEmail); !ok {
		utils.BadRequest(c, msg, nil)
		return
	}

	now := time.Now()
	scheduledAt := now
	if req.ScheduleAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduleAt)
		if err != nil {
			utils.BadRequest(c, "scheduleAt must be an RFC3339 timestamp", nil)
			return
		}
		scheduledAt = t
	}

	priority := req.Priority
	if priority != "low" && priority != "high" {
		priority = "normal"
	}
	log := models.EmailNotificationLog{
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		UserEmail:   req.UserEmail,
		UserName:    req.UserName,
		UserID:      req.UserID,
		Data:        req.Data,
		Priority:    priority,
		ScheduledAt: &scheduledAt,
	}

	ctx := c.Request.Context()
	if scheduledAt.After(now) {
		if err := services.QueueEmail(ctx, &log); err != nil {
			utils.LogError("Failed to schedule email: %v", err)
			utils.InternalServerError(c, "Failed to schedule email", nil)
			return
		}
		utils.LogInfo("Email %s scheduled for %s", log.ID, scheduledAt.Format(time.RFC3339))
		utils.Accepted(c, "Email scheduled successfully", gin.H{
			"id":           log.ID,
			"scheduledFor": scheduledAt.UTC().Format(time.RFC3339),
		})
		return
	}

	log.Status = models.DeliverySending
	if err := config.DB.WithContext(ctx).Create(&log).Error; err != nil {
		utils.LogError("Failed to record email: %v", err)
		utils.InternalServerError(c, "Failed to send email", nil)
		return
	}
	if err := services.DeliverEmail(ctx, &log, 1); err != nil {
		utils.LogError("Failed to send %s email to %s: %v", log.Type, log.UserEmail, err)
		utils.InternalServerError(c, "Failed to send email", gin.H{"id": log.ID, "reason": err.Error()})
		return
	}

	utils.Success(c, "Email sent successfully", gin.H{
		"id":        log.ID,
		"messageId": log.ProviderMessageID,
	})
}

// GetEmailNotifications lists email logs, newest first
func GetEmailNotifications(c *gin.Context) {
	utils.LogInfo("GetEmailNotifications called")

	q := config.DB.Model(&models.EmailNotificationLog{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	if email := c.Query("userEmail"); email != "" {
		q = q.Where("user_email = ?", email)
	}
	limit := utils.QueryInt(c, "limit", utils.DefaultListLimit)
	if limit > utils.MaxPaginationLimit {
		limit = utils.MaxPaginationLimit
	}

	var logs []models.EmailNotificationLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		utils.LogError("Failed to fetch email logs: %v", err)
		utils.InternalServerError(c, "Failed to fetch email notifications", nil)
		return
	}
	utils.Success(c, "Email notifications retrieved successfully", gin.H{
		"notifications": logs,
		"total":         len(logs),
	})
}
