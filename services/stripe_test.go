package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

func TestConstructEvent(t *testing.T) {
	gw := NewStripeGateway("sk_test_dummy", "whsec_test")
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})
	event, err := gw.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, stripe.EventType("payment_intent.succeeded"), event.Type)

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	_, err = gw.ConstructEvent(payload, forged.Header)
	assert.Error(t, err)

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now().Add(-time.Hour),
	})
	_, err = gw.ConstructEvent(payload, stale.Header)
	assert.Error(t, err)
}

func TestConstructEventWithoutSecret(t *testing.T) {
	_, err := NewStripeGateway("sk_test_dummy", "").ConstructEvent([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrWebhookSecretMissing)
}

func TestStripeRefundReason(t *testing.T) {
	assert.Equal(t, "duplicate", stripeRefundReason("duplicate"))
	assert.Equal(t, "fraudulent", stripeRefundReason("fraudulent"))
	assert.Equal(t, "requested_by_customer", stripeRefundReason("partial"))
	assert.Equal(t, "requested_by_customer", stripeRefundReason(""))
}

func TestSessionFromStripe(t *testing.T) {
	s := SessionFromStripe(&stripe.CheckoutSession{
		ID:              "cs_test_1",
		Status:          stripe.CheckoutSessionStatusComplete,
		PaymentStatus:   stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:     50000,
		Currency:        stripe.CurrencyKRW,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "buyer@example.com"},
		Customer:        &stripe.Customer{ID: "cus_1"},
		PaymentIntent:   &stripe.PaymentIntent{ID: "pi_1"},
		Metadata:        map[string]string{"quoteId": "q1"},
	})

	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "complete", s.Status)
	assert.Equal(t, "paid", s.PaymentStatus)
	assert.Equal(t, "buyer@example.com", s.CustomerEmail)
	assert.Equal(t, "cus_1", s.CustomerID)
	assert.Equal(t, "pi_1", s.PaymentIntentID)
	assert.Equal(t, "krw", s.Currency)
	assert.Equal(t, "q1", s.Metadata["quoteId"])
}

type recordingPublisher struct {
	keys   []string
	events []PaymentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, value any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, value.(PaymentEvent))
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishPaymentEvent(t *testing.T) {
	pub := &recordingPublisher{}
	prev := Events
	Events = pub
	t.Cleanup(func() { Events = prev })

	PublishPaymentEvent(context.Background(), PaymentEvent{Type: EventPaymentCompleted, PaymentID: "cs_1", Amount: 50000})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "cs_1", pub.keys[0])
	assert.False(t, pub.events[0].OccurredAt.IsZero())
}
