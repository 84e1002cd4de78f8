package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var DB *gorm.DB

// current is the configuration loaded at startup; tests may replace it with Set
var current = &Config{}

// Config holds all configuration for the application
type Config struct {
	Port      string
	Env       string
	BaseURL   string
	PublicURL string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	CORSOrigin    string

	StripeSecretKey     string
	StripeWebhookSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	SupabaseURL   string
	SupabaseKey   string
	StorageBucket string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	GoogleClientID     string
	GoogleClientSecret string
	KakaoClientID      string
	KakaoClientSecret  string
	NaverClientID      string
	NaverClientSecret  string

	RateLimitPerMinute int
}

// LoadConfig loads configuration from the .env file (when present) and the environment
func LoadConfig() (*Config, error) {
	// .env is optional; deployed environments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		BaseURL:   strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "tourguider"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: getEnv("SESSION_SECRET", "tourguider-session"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:admin@tourguider.kr"),

		SupabaseURL:   strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:   os.Getenv("SUPABASE_SERVICE_KEY"),
		StorageBucket: getEnv("STORAGE_BUCKET", "quote-attachments"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "payment-events"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		KakaoClientID:      os.Getenv("KAKAO_CLIENT_ID"),
		KakaoClientSecret:  os.Getenv("KAKAO_CLIENT_SECRET"),
		NaverClientID:      os.Getenv("NAVER_CLIENT_ID"),
		NaverClientSecret:  os.Getenv("NAVER_CLIENT_SECRET"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	current = cfg
	return cfg, nil
}

// Get returns the configuration loaded by LoadConfig
func Get() *Config {
	return current
}

// Set replaces the active configuration
func Set(cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}
	current = cfg
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
