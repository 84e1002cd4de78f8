package models

import (
	"time"

	"gorm.io/gorm"
)

// PushSubscription is a browser-issued Web Push endpoint with its keys
type PushSubscription struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Endpoint       string     `gorm:"uniqueIndex;size:768;not null" json:"endpoint"`
	P256dh         string     `gorm:"not null" json:"p256dh"`
	Auth           string     `gorm:"not null" json:"auth"`
	UserEmail      string     `gorm:"index" json:"userEmail"`
	UserID         string     `gorm:"index" json:"userId"`
	IsActive       bool       `gorm:"index" json:"isActive"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
	ReactivatedAt  *time.Time `json:"reactivatedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// PushAction is a button rendered on a push notification
type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// PushTarget selects the subscriptions a push is sent to
type PushTarget struct {
	UserEmails []string `json:"userEmails,omitempty"`
	UserIDs    []string `json:"userIds,omitempty"`
	AllUsers   bool     `json:"allUsers,omitempty"`
}

// PushResult is the outcome of one delivery attempt
type PushResult struct {
	SubscriptionID string `json:"subscriptionId"`
	Success        bool   `json:"success"`
	StatusCode     int    `json:"statusCode,omitempty"`
	Error          string `json:"error,omitempty"`
}

// PushNotificationLog records one send request and its per-subscription results
type PushNotificationLog struct {
	ID                 string       `gorm:"primaryKey;size:64" json:"id"`
	Title              string       `json:"title"`
	Message            string       `gorm:"type:text" json:"message"`
	Tag                string       `json:"tag,omitempty"`
	Data               JSONMap      `gorm:"type:text;serializer:json" json:"data,omitempty"`
	Actions            []PushAction `gorm:"type:text;serializer:json" json:"actions,omitempty"`
	RequireInteraction bool         `json:"requireInteraction"`
	TargetUsers        PushTarget   `gorm:"type:text;serializer:json" json:"targetUsers"`
	ScheduledAt        *time.Time   `json:"scheduleAt,omitempty"`
	SentAt             time.Time    `json:"sentAt"`
	TargetCount        int          `json:"targetCount"`
	Status             string       `gorm:"index" json:"status"`
	SuccessfulCount    int          `json:"successfulCount"`
	FailedCount        int          `json:"failedCount"`
	Results            []PushResult `gorm:"type:text;serializer:json" json:"results,omitempty"`
	CompletedAt        *time.Time   `json:"completedAt,omitempty"`
	CreatedAt          time.Time    `gorm:"index" json:"createdAt"`
}

func (l *PushNotificationLog) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}
