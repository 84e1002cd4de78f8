package controllers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stripe/stripe-go/v76"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/routes"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
)

// newTestRouter returns the full API on a fresh database
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	utils.SetupTestDB(t)
	return routes.SetupRouter(config.Get())
}

func adminHeaders(t *testing.T) map[string]string {
	t.Helper()
	admin := utils.CreateTestAdmin(t, "admin@tourguider.com", "admin-password")
	return utils.AuthHeader(utils.GetTestAdminToken(t, admin))
}

func usePayments(t *testing.T, gw services.PaymentGateway) {
	t.Helper()
	prev := services.Payments
	services.Payments = gw
	t.Cleanup(func() { services.Payments = prev })
}

func usePush(t *testing.T, sender services.PushSender) {
	t.Helper()
	prev := services.Push
	services.Push = sender
	t.Cleanup(func() { services.Push = prev })
}

func createPayment(t *testing.T, p models.Payment) models.Payment {
	t.Helper()
	if p.Currency == "" {
		p.Currency = "krw"
	}
	if err := config.DB.Create(&p).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return p
}

// fakeGateway records refunds and answers checkout calls without Stripe
type fakeGateway struct {
	refunds   []services.RefundRequest
	sessions  map[string]*services.CheckoutSession
	checkouts []services.CheckoutRequest
	refundErr error
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutSession, error) {
	g.checkouts = append(g.checkouts, req)
	return &services.CheckoutSession{ID: "cs_test_fake", URL: "https://checkout.stripe.test/cs_test_fake"}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*services.CheckoutSession, error) {
	if s, ok := g.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

func (g *fakeGateway) CreateRefund(ctx context.Context, req services.RefundRequest) (*services.RefundResult, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return &services.RefundResult{ID: "re_fake_" + string(rune('0'+len(g.refunds))), Status: "succeeded", Amount: req.Amount, Currency: "krw"}, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("signature verification is not faked")
}

type fakeStorage struct {
	uploaded map[string][]byte
	removed  []string
	host     string
}

func (s *fakeStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (*services.StoredFile, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if s.uploaded == nil {
		s.uploaded = make(map[string][]byte)
	}
	s.uploaded[path] = data
	return &services.StoredFile{Path: path, URL: "https://" + s.host + "/storage/v1/object/public/attachments/" + path}, nil
}

func (s *fakeStorage) Remove(ctx context.Context, paths ...string) error {
	s.removed = append(s.removed, paths...)
	return nil
}

func (s *fakeStorage) Host() string { return s.host }

func useStorage(t *testing.T, s services.FileStorage) {
	t.Helper()
	prev := services.Storage
	services.Storage = s
	t.Cleanup(func() { services.Storage = prev })
}

type fakeMailer struct {
	sent []services.Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, email services.Email) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, email)
	return "<msg-" + email.To + ">", nil
}

func useMailer(t *testing.T, m services.Mailer) {
	t.Helper()
	prev := services.Mail
	services.Mail = m
	t.Cleanup(func() { services.Mail = prev })
}

// fakePushSender answers 201 except for the endpoints listed in status
type fakePushSender struct {
	mu     sync.Mutex
	sent   []string
	status map[string]int
}

func (f *fakePushSender) PublicKey() string { return "BPublicTestKey" }

func (f *fakePushSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sub.Endpoint)
	f.mu.Unlock()
	if code, ok := f.status[sub.Endpoint]; ok {
		return code, &services.PushStatusError{StatusCode: code}
	}
	return http.StatusCreated, nil
}
