package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationWarning = "warning"
	NotificationInfo    = "info"
)

// Notification is an in-app message shown to a customer or admin
type Notification struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Type      string    `gorm:"not null" json:"type"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	UserID    string    `gorm:"index" json:"userId,omitempty"`
	UserEmail string    `gorm:"index" json:"userEmail,omitempty"`
	IsRead    bool      `gorm:"default:false" json:"isRead"`
	Metadata  JSONMap   `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	newID(&n.ID)
	return nil
}

// Email notification types
const (
	EmailPaymentSuccess    = "payment_success"
	EmailPaymentFailed     = "payment_failed"
	EmailQuoteSubmitted    = "quote_submitted"
	EmailQuoteApproved     = "quote_approved"
	EmailQuoteRejected     = "quote_rejected"
	EmailRefundRequested   = "refund_requested"
	EmailRefundProcessed   = "refund_processed"
	EmailAdminNotification = "admin_notification"
)

// IsEmailType reports whether t is a known email notification type
func IsEmailType(t string) bool {
	switch t {
	case EmailPaymentSuccess, EmailPaymentFailed, EmailQuoteSubmitted, EmailQuoteApproved,
		EmailQuoteRejected, EmailRefundRequested, EmailRefundProcessed, EmailAdminNotification:
		return true
	}
	return false
}

// Delivery statuses shared by email and push logs
const (
	DeliveryPending   = "pending"
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
	DeliverySending   = "sending"
	DeliveryCompleted = "completed"
	DeliveryScheduled = "scheduled"
)

// EmailNotificationLog records one notification email and its delivery state
type EmailNotificationLog struct {
	ID                string     `gorm:"primaryKey;size:64" json:"id"`
	Type              string     `gorm:"index" json:"type"`
	Title             string     `json:"title"`
	Message           string     `gorm:"type:text" json:"message"`
	UserEmail         string     `gorm:"index" json:"userEmail"`
	UserName          string     `json:"userName,omitempty"`
	UserID            string     `json:"userId,omitempty"`
	Data              JSONMap    `gorm:"type:text;serializer:json" json:"data,omitempty"`
	Priority          string     `gorm:"default:normal" json:"priority"`
	Status            string     `gorm:"index" json:"status"`
	ScheduledAt       *time.Time `gorm:"index" json:"scheduleAt,omitempty"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	FailedAt          *time.Time `json:"failedAt,omitempty"`
	ErrorMessage      string     `json:"error,omitempty"`
	RetryCount        int        `json:"retryCount"`
	ProviderMessageID string     `json:"messageId,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (l *EmailNotificationLog) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}
