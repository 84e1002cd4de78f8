package controllers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/controllers"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
)

func TestSocialLogin(t *testing.T) {
	router := newTestRouter(t)
	cfg := *config.Get()
	cfg.GoogleClientID = "google-client"
	config.Set(&cfg)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/auth/google/login"})
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://accounts.google.com/"), location)
	assert.Contains(t, location, "client_id=google-client")
	assert.Contains(t, location, "state=")
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "tourguider=")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/auth/kakao/login"})
	utils.AssertResponse(t, resp, http.StatusServiceUnavailable, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/auth/github/login"})
	utils.AssertResponse(t, resp, http.StatusNotFound, "error")
}

func TestSocialCallbackRequiresState(t *testing.T) {
	router := newTestRouter(t)
	cfg := *config.Get()
	cfg.GoogleClientID = "google-client"
	config.Set(&cfg)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/auth/google/callback?code=abc&state=forged"})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "error")

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/auth/naver/callback?code=abc"})
	utils.AssertResponse(t, resp, http.StatusNotFound, "error")
}

func TestEnsureSocialUser(t *testing.T) {
	utils.SetupTestDB(t)
	ctx := context.Background()

	user, err := controllers.EnsureSocialUser(ctx, &controllers.SocialProfile{
		Provider: models.ProviderKakao, ID: "12345", Email: "traveler@example.com", Name: "여행자",
	})
	require.NoError(t, err)
	assert.Equal(t, "kakao:12345", user.ID)
	assert.NotEmpty(t, user.ReferralCode)
	code := user.ReferralCode

	user, err = controllers.EnsureSocialUser(ctx, &controllers.SocialProfile{
		Provider: models.ProviderKakao, ID: "12345", Name: "새 이름",
	})
	require.NoError(t, err)
	assert.Equal(t, "새 이름", user.Name)
	assert.Equal(t, "traveler@example.com", user.Email)
	assert.Equal(t, code, user.ReferralCode)

	var count int64
	config.DB.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetMe(t *testing.T) {
	router := newTestRouter(t)
	user := utils.CreateTestUser(t, "google:1", "host@example.com", "TGHOST01")

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/user/me",
		Headers: utils.AuthHeader(utils.GetTestUserToken(t, user))})
	utils.AssertResponse(t, resp, http.StatusOK, "success")
	assert.Equal(t, "host@example.com", resp.Data()["user"].(map[string]interface{})["email"])

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: "GET", Path: "/api/user/me"})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, "error")
}
