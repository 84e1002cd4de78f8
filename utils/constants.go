package utils

// Application constants
const (
	// Application name
	AppName = "TourGuider"

	// Default port
	DefaultPort = "8080"

	// Default database settings
	DefaultDBHost = "localhost"
	DefaultDBPort = "5432"
	DefaultDBName = "tourguider"
	DefaultDBUser = "postgres"

	// Maximum size of one quote attachment (10MB)
	MaxAttachmentSize = 10 * 1024 * 1024

	// Maximum number of attachments per quote
	MaxAttachments = 5

	// Stripe webhook bodies are small; anything larger is rejected
	MaxWebhookBodyBytes = int64(65536)

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Default limit for notification and log listings
	DefaultListLimit = 50
)

// Error messages
const (
	ErrInvalidCredentials = "Invalid credentials"
	ErrInvalidToken       = "Invalid or expired token"
	ErrUnauthorized       = "Please login for access"

	ErrInvalidEmail     = "Invalid email format"
	ErrMissingFields    = "Required fields are missing"
	ErrEmailRequired    = "Email is required"
	ErrIDRequired       = "ID is required"
	ErrInvalidDateRange = "End date cannot be before start date"

	ErrDBNotConfigured      = "Database not configured"
	ErrStripeNotConfigured  = "Stripe is not configured"
	ErrStorageNotConfigured = "File storage is not configured"
	ErrPushNotConfigured    = "Push notifications are not configured"

	ErrInternalServer = "Internal server error"
)

// Success messages
const (
	MsgLoginSuccess  = "Login successful"
	MsgLogoutSuccess = "Logged out successfully"
	MsgCreateSuccess = "Created successfully"
	MsgUpdateSuccess = "Updated successfully"
	MsgDeleteSuccess = "Deleted successfully"
)
