package services

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// CheckoutRequest describes a single-item checkout
type CheckoutRequest struct {
	Product       Product
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the part of a Stripe checkout session the service uses
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	CustomerID      string            `json:"customer,omitempty"`
	PaymentIntentID string            `json:"payment_intent,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
	Created         int64             `json:"created"`
}

// RefundRequest refunds part or all of a payment intent
type RefundRequest struct {
	PaymentIntentID string
	Amount          int64
	Reason          string
	Metadata        map[string]string
}

// RefundResult is the processor's answer to a refund
type RefundResult struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentGateway is the card processor used by the payment handlers
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	// ConstructEvent verifies the Stripe-Signature header and decodes the event
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// ErrWebhookSecretMissing is returned when webhook verification is not configured
var ErrWebhookSecretMissing = errors.New("stripe webhook secret not configured")

// StripeGateway implements PaymentGateway with the Stripe API
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway for the given secret key
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		sc:            client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Product.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Product.Name),
						Description: stripe.String(req.Product.Description),
					},
					UnitAmount: stripe.Int64(req.Product.Price),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(s), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(s), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.Amount),
		Reason:        stripe.String(stripeRefundReason(req.Reason)),
		Metadata:      req.Metadata,
	}
	params.Context = ctx

	r, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, err
	}
	return &RefundResult{
		ID:       r.ID,
		Status:   string(r.Status),
		Amount:   r.Amount,
		Currency: string(r.Currency),
	}, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// stripeRefundReason maps a refund type onto the reasons Stripe accepts
func stripeRefundReason(refundType string) string {
	switch refundType {
	case "fraudulent", "duplicate":
		return refundType
	default:
		return string(stripe.RefundReasonRequestedByCustomer)
	}
}

func fromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
		Created:       s.Created,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// SessionFromStripe converts a session decoded from a webhook payload
func SessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	return fromStripeSession(s)
}
