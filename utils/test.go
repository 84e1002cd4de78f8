package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret signs the tokens issued in tests
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB points config.DB at a fresh in-memory SQLite database with the
// full schema and installs a test configuration. Both are restored on cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", TestJWTSecret)
	SetLogger(zap.NewNop())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every connection to :memory: would get its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))

	prevDB, prevCfg := config.DB, config.Get()
	config.DB = db
	config.Set(&config.Config{
		Env:           "test",
		BaseURL:       "http://localhost:3000",
		PublicURL:     "http://localhost:8080",
		JWTSecret:     TestJWTSecret,
		SessionSecret: "test-session-secret",
		CORSOrigin:    "*",
	})
	t.Cleanup(func() {
		config.DB = prevDB
		config.Set(prevCfg)
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestUser stores a social login user
func CreateTestUser(t *testing.T, id, email, referralCode string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           id,
		Provider:     models.ProviderGoogle,
		ProviderUID:  id,
		Email:        email,
		Name:         "Test User",
		Role:         "user",
		ReferralCode: referralCode,
	}
	require.NoError(t, config.DB.Create(user).Error)
	return user
}

// CreateTestAdmin stores an active admin with the given password
func CreateTestAdmin(t *testing.T, email, password string) *models.Admin {
	t.Helper()
	hashed, err := HashPassword(password)
	require.NoError(t, err)
	admin := &models.Admin{Email: email, Password: hashed, IsActive: true}
	require.NoError(t, config.DB.Create(admin).Error)
	return admin
}

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Header     http.Header
	Body       map[string]interface{}
	Raw        []byte
}

// Data returns the "data" object of a standard response
func (r TestResponse) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// MakeTestRequest makes a test HTTP request. A []byte body is sent as is,
// anything else is encoded as JSON.
func MakeTestRequest(t *testing.T, router http.Handler, req TestRequest) TestResponse {
	t.Helper()

	var body []byte
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = b
	default:
		var err error
		body, err = json.Marshal(b)
		require.NoError(t, err, "marshal request body")
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	resp := TestResponse{StatusCode: w.Code, Header: w.Header(), Raw: w.Body.Bytes()}
	if w.Body.Len() > 0 && json.Valid(w.Body.Bytes()) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body))
	}
	return resp
}

// AssertResponse asserts the status code and the "status" field of a standard response
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int, expectedStatus string) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, string(response.Raw))
	if expectedStatus != "" {
		assert.Equal(t, expectedStatus, response.Body["status"])
	}
}

// AuthHeader builds an Authorization header for token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// GetTestAdminToken signs an admin token for admin
func GetTestAdminToken(t *testing.T, admin *models.Admin) string {
	t.Helper()
	token, err := GenerateAdminToken(admin.ID)
	require.NoError(t, err)
	return token
}

// GetTestUserToken signs a user token for user
func GetTestUserToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := GenerateUserToken(user.ID, user.Email)
	require.NoError(t, err)
	return token
}
