package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentStatusPending           = "pending"
	PaymentStatusCompleted         = "completed"
	PaymentStatusSucceeded         = "succeeded"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// Refund types
const (
	RefundTypeRequestedByCustomer = "requested_by_customer"
	RefundTypeFraudulent          = "fraudulent"
	RefundTypePartial             = "partial"
	RefundTypeExternal            = "external"
)

// Payment mirrors a Stripe checkout session; ID is the checkout session id.
// Amounts are in the currency's minor unit (KRW has none).
type Payment struct {
	ID                    string     `gorm:"primaryKey;size:255" json:"id"`
	CustomerEmail         string     `gorm:"index" json:"customerEmail"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
	Status                string     `gorm:"index" json:"status"`
	PaymentMethod         string     `json:"paymentMethod"`
	Metadata              JSONMap    `gorm:"type:text;serializer:json" json:"metadata"`
	StripeSessionID       string     `gorm:"index" json:"stripeSessionId"`
	StripeCustomerID      string     `json:"stripeCustomerId,omitempty"`
	StripePaymentIntentID string     `gorm:"index" json:"stripePaymentIntentId,omitempty"`
	FailureReason         string     `json:"failureReason,omitempty"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`
	RefundedAt            *time.Time `json:"refundedAt,omitempty"`
	RefundAmount          int64      `json:"refundAmount"`
	RefundReason          string     `json:"refundReason,omitempty"`
	RefundID              string     `json:"refundId,omitempty"`
	LastRefundID          string     `json:"lastRefundId,omitempty"`
	CreatedAt             time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// IsPaid reports whether the payment counts towards revenue
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusCompleted
}

// Refund records money returned for a payment
type Refund struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	PaymentID      string    `gorm:"index;size:255" json:"paymentId"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
	RefundType     string    `json:"refundType"`
	StripeRefundID string    `gorm:"index" json:"stripeRefundId"`
	Status         string    `json:"status"`
	CustomerEmail  string    `gorm:"index" json:"customerEmail"`
	OriginalAmount int64     `json:"originalAmount"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
