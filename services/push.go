package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/tourguider/backend/models"
)

// PushMessage is the JSON payload the service worker renders
type PushMessage struct {
	Title              string              `json:"title"`
	Body               string              `json:"body"`
	Icon               string              `json:"icon"`
	Badge              string              `json:"badge"`
	Tag                string              `json:"tag,omitempty"`
	Data               models.JSONMap      `json:"data,omitempty"`
	Actions            []models.PushAction `json:"actions,omitempty"`
	RequireInteraction bool                `json:"requireInteraction"`
}

// PushSender delivers one message to one subscription and returns the push service status
type PushSender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error)
	PublicKey() string
}

// WebPushSender signs deliveries with the service's VAPID keys
type WebPushSender struct {
	publicKey  string
	privateKey string
	subject    string
	ttl        int
}

func NewWebPushSender(publicKey, privateKey, subject string) *WebPushSender {
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		ttl:        86400,
	}
}

func (w *WebPushSender) PublicKey() string {
	return w.publicKey
}

func (w *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      w.subject,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             w.ttl,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, &PushStatusError{StatusCode: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

// PushStatusError is a non-2xx answer from a push service
type PushStatusError struct {
	StatusCode int
}

func (e *PushStatusError) Error() string {
	return "push service answered " + http.StatusText(e.StatusCode)
}

// SubscriptionGone reports whether the push service dropped the subscription
func SubscriptionGone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}

const pushWorkers = 8

// Broadcast sends msg to every subscription with at most pushWorkers deliveries in flight.
// Results come back in subscription order.
func Broadcast(ctx context.Context, sender PushSender, subs []models.PushSubscription, msg PushMessage) ([]models.PushResult, error) {
	if msg.Icon == "" {
		msg.Icon = "/icon-192x192.png"
	}
	if msg.Badge == "" {
		msg.Badge = "/icon-72x72.png"
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	results := make([]models.PushResult, len(subs))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := pushWorkers
	if len(subs) < workers {
		workers = len(subs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				status, err := sender.Send(ctx, subs[i], payload)
				res := models.PushResult{SubscriptionID: subs[i].ID, Success: err == nil, StatusCode: status}
				if err != nil {
					res.Error = err.Error()
				}
				results[i] = res
			}
		}()
	}

	for i := range subs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, nil
}
