package services

import (
	"context"
	"time"

	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/utils"
)

// Vendor clients shared by the handlers. A nil client means the integration is not
// configured and the handlers answer accordingly; tests replace them with fakes.
var (
	Payments PaymentGateway
	Storage  FileStorage
	Push     PushSender
	Mail     Mailer
	Events   EventPublisher = noopPublisher{}
	Realtime                = NewHub()
	Limits   *Cache
)

// Init builds the vendor clients that cfg has credentials for
func Init(cfg *config.Config) {
	if cfg.StripeSecretKey != "" {
		Payments = NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		utils.LogInfo("Stripe gateway configured")
	} else {
		utils.LogWarn("STRIPE_SECRET_KEY not set, checkout runs in test mode")
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		s, err := NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket)
		if err != nil {
			utils.LogError("Storage disabled: %v", err)
		} else {
			Storage = s
			utils.LogInfo("Supabase storage configured for bucket %s", cfg.StorageBucket)
		}
	}

	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		Push = NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		utils.LogInfo("Web push configured")
	}

	if cfg.SMTPHost != "" {
		Mail = NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		utils.LogInfo("SMTP mailer configured for %s", cfg.SMTPHost)
	}

	if len(cfg.KafkaBrokers) > 0 {
		Events = NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		utils.LogInfo("Publishing payment events to %s", cfg.KafkaTopic)
	}

	if cfg.RedisAddr != "" {
		cache := NewCache(cfg.RedisAddr, cfg.RedisPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.Ping(ctx); err != nil {
			utils.LogError("Redis unavailable, rate limiting disabled: %v", err)
			_ = cache.Close()
		} else {
			Limits = cache
		}
	}
}

// Close releases the clients that hold connections
func Close() {
	if Events != nil {
		if err := Events.Close(); err != nil {
			utils.LogError("Failed to close event publisher: %v", err)
		}
	}
	if Limits != nil {
		_ = Limits.Close()
	}
}

// PublishPaymentEvent publishes ev keyed by payment id; failures are only logged
func PublishPaymentEvent(ctx context.Context, ev PaymentEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if err := Events.Publish(ctx, ev.PaymentID, ev); err != nil {
		utils.LogError("Failed to publish %s for %s: %v", ev.Type, ev.PaymentID, err)
	}
}
