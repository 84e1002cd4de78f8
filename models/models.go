package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin represents an administrator in the system
type Admin struct {
	gorm.Model
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	LastLogin time.Time `json:"lastLogin"`
	IsActive  bool      `json:"isActive" gorm:"default:true"`
}

// Social login providers
const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
)

// User represents a customer who signed in through a social provider.
// ID has the form "<provider>:<provider user id>".
type User struct {
	ID            string    `gorm:"primaryKey;size:191" json:"id"`
	Provider      string    `gorm:"index;not null" json:"provider"`
	ProviderUID   string    `json:"providerUid"`
	Email         string    `gorm:"index" json:"email"`
	Name          string    `json:"name"`
	PhotoURL      string    `json:"photoUrl"`
	Role          string    `gorm:"default:user" json:"role"`
	ReferralCode  string    `gorm:"uniqueIndex;size:32" json:"referralCode"`
	ReferredBy    string    `json:"referredBy,omitempty"`
	ReferredCount int       `gorm:"default:0" json:"referredCount"`
	TotalEarnings int64     `gorm:"default:0" json:"totalEarnings"`
	LastLoginAt   time.Time `json:"lastLoginAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JSONMap is stored as a JSON document
type JSONMap map[string]interface{}

// newID fills empty string primary keys with a uuid
func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

// Quote statuses
const (
	QuoteStatusPending   = "pending"
	QuoteStatusReviewing = "reviewing"
	QuoteStatusResponded = "responded"
	QuoteStatusApproved  = "approved"
	QuoteStatusRejected  = "rejected"
	QuoteStatusCompleted = "completed"
	QuoteStatusCancelled = "cancelled"
)

// Attachment describes a file uploaded with a quote request
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Quote is a customer-submitted travel preference record
type Quote struct {
	ID            string       `gorm:"primaryKey;size:64" json:"id"`
	Name          string       `gorm:"not null" json:"name"`
	Email         string       `gorm:"index;not null" json:"email"`
	Phone         string       `json:"phone"`
	Destination   string       `gorm:"not null" json:"destination"`
	Airline       string       `json:"airline"`
	Hotel         string       `json:"hotel"`
	StartDate     time.Time    `json:"startDate"`
	EndDate       time.Time    `json:"endDate"`
	Adults        int          `json:"adults"`
	Children      int          `json:"children"`
	Infants       int          `json:"infants"`
	TravelStyle   []string     `gorm:"type:text;serializer:json" json:"travelStyle"`
	Interests     []string     `gorm:"type:text;serializer:json" json:"interests"`
	Budget        string       `json:"budget"`
	Requests      string       `gorm:"type:text" json:"requests"`
	Status        string       `gorm:"index;default:pending" json:"status"`
	Response      string       `gorm:"type:text" json:"response,omitempty"`
	RespondedAt   *time.Time   `json:"respondedAt,omitempty"`
	PaymentStatus string       `json:"paymentStatus,omitempty"`
	PaymentID     string       `json:"paymentId,omitempty"`
	PaidAt        *time.Time   `json:"paidAt,omitempty"`
	RefundedAt    *time.Time   `json:"refundedAt,omitempty"`
	Attachments   []Attachment `gorm:"type:text;serializer:json" json:"attachments"`
	ReferralCode  string       `json:"referralCode,omitempty"`
	CreatedAt     time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	newID(&q.ID)
	return nil
}
