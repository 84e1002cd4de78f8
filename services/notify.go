package services

import (
	"context"
	"errors"
	"time"

	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

// MaxEmailAttempts is how many times a queued email is tried before it is marked failed
const MaxEmailAttempts = 3

// ErrMailerNotConfigured is returned when no SMTP relay is set up
var ErrMailerNotConfigured = errors.New("email delivery is not configured")

// Notify stores n and pushes it to the realtime connections of its user,
// or to the admin channel when it has no user.
func Notify(ctx context.Context, n *models.Notification) error {
	if err := config.DB.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}
	key := n.UserEmail
	if key == "" {
		key = AdminChannel
	}
	Realtime.Send(key, RealtimeMessage{Event: "notification", Data: n})
	return nil
}

// NotifyQuiet is Notify for side effects that must not fail the request
func NotifyQuiet(ctx context.Context, n *models.Notification) {
	if err := Notify(ctx, n); err != nil {
		utils.LogError("Failed to create notification %q: %v", n.Title, err)
	}
}

// QueueEmail stores a pending email for the dispatcher to send
func QueueEmail(ctx context.Context, log *models.EmailNotificationLog) error {
	now := time.Now()
	log.Status = models.DeliveryPending
	if log.Priority == "" {
		log.Priority = "normal"
	}
	if log.ScheduledAt == nil {
		log.ScheduledAt = &now
	}
	return config.DB.WithContext(ctx).Create(log).Error
}

// QueueEmailQuiet is QueueEmail for side effects that must not fail the request
func QueueEmailQuiet(ctx context.Context, log *models.EmailNotificationLog) {
	if err := QueueEmail(ctx, log); err != nil {
		utils.LogError("Failed to queue %s email for %s: %v", log.Type, log.UserEmail, err)
	}
}

// DeliverEmail renders and sends log, then records the outcome on it.
// A failure leaves the log pending until maxAttempts tries have been made.
func DeliverEmail(ctx context.Context, log *models.EmailNotificationLog, maxAttempts int) error {
	err := sendEmail(ctx, log)
	now := time.Now()

	if err != nil {
		utils.EmailDeliveries.WithLabelValues("failed").Inc()
		log.RetryCount++
		log.ErrorMessage = err.Error()
		log.FailedAt = &now
		log.Status = models.DeliveryPending
		if log.RetryCount >= maxAttempts {
			log.Status = models.DeliveryFailed
		}
	} else {
		utils.EmailDeliveries.WithLabelValues("sent").Inc()
		log.Status = models.DeliverySent
		log.SentAt = &now
		log.ErrorMessage = ""
	}

	if saveErr := config.DB.WithContext(ctx).Save(log).Error; saveErr != nil {
		utils.LogError("Failed to update email log %s: %v", log.ID, saveErr)
	}
	return err
}

func sendEmail(ctx context.Context, log *models.EmailNotificationLog) error {
	if Mail == nil {
		return ErrMailerNotConfigured
	}
	html, err := RenderEmail(log, config.Get().BaseURL, time.Now())
	if err != nil {
		return err
	}
	id, err := Mail.Send(ctx, Email{To: log.UserEmail, Subject: log.Title, HTML: html})
	if err != nil {
		return err
	}
	log.ProviderMessageID = id
	return nil
}
