package models

import (
	"time"

	"gorm.io/gorm"
)

// Referral statuses
const (
	ReferralStatusPending   = "pending"
	ReferralStatusActive    = "active"
	ReferralStatusCompleted = "completed"
	ReferralStatusCancelled = "cancelled"
)

// Referral links a referrer to a user who signed up with their code
type Referral struct {
	ID                string     `gorm:"primaryKey;size:64" json:"id"`
	ReferrerID        string     `gorm:"index" json:"referrerId"`
	ReferrerName      string     `json:"referrerName"`
	ReferrerEmail     string     `json:"referrerEmail"`
	ReferredUserID    string     `gorm:"uniqueIndex" json:"referredUserId"`
	ReferredUserName  string     `json:"referredUserName"`
	ReferredUserEmail string     `json:"referredUserEmail"`
	ReferralCode      string     `gorm:"index" json:"referralCode"`
	Status            string     `gorm:"default:pending" json:"status"`
	Earnings          int64      `json:"earnings"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
