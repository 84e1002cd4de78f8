package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/services"
	"github.com/tourguider/backend/utils"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const oauthStateKey = "oauth_state"

// SocialProfile is the subset of a provider profile stored on the user
type SocialProfile struct {
	Provider string
	ID       string
	Email    string
	Name     string
	PhotoURL string
}

var profileURLs = map[string]string{
	models.ProviderGoogle: "https://www.googleapis.com/oauth2/v2/userinfo",
	models.ProviderKakao:  "https://kapi.kakao.com/v2/user/me",
	models.ProviderNaver:  "https://openapi.naver.com/v1/nid/me",
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

type naverUserInfo struct {
	Response struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Name         string `json:"name"`
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

// SocialLogin redirects to the provider's consent page
func SocialLogin(c *gin.Context) {
	utils.LogInfo("SocialLogin called")
	provider := c.Param("provider")

	oauthCfg, ok := config.Get().OAuthConfig(provider)
	if oauthCfg == nil {
		utils.NotFound(c, "Unknown login provider")
		return
	}
	if !ok {
		utils.ServiceUnavailable(c, provider+" login is not configured")
		return
	}

	state, err := randomState()
	if err != nil {
		utils.LogError("Failed to generate oauth state: %v", err)
		utils.InternalServerError(c, "Failed to start login", nil)
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		utils.LogError("Failed to save session: %v", err)
		utils.InternalServerError(c, "Failed to start login", nil)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, oauthCfg.AuthCodeURL(state))
}

// SocialCallback finishes the OAuth flow and issues a user token
func SocialCallback(c *gin.Context) {
	utils.LogInfo("SocialCallback called")
	provider := c.Param("provider")

	oauthCfg, ok := config.Get().OAuthConfig(provider)
	if !ok {
		utils.NotFound(c, "Unknown login provider")
		return
	}

	session := sessions.Default(c)
	expected, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	_ = session.Save()
	if expected == "" || c.Query("state") != expected {
		utils.LogError("OAuth state mismatch for %s", provider)
		utils.BadRequest(c, "Invalid login state", nil)
		return
	}

	code := c.Query("code")
	if code == "" {
		utils.BadRequest(c, "No code provided", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		utils.LogError("Failed to exchange %s code: %v", provider, err)
		utils.Error(c, http.StatusBadGateway, "Failed to exchange token", nil)
		return
	}

	profile, err := fetchProfile(ctx, provider, oauthCfg, token)
	if err != nil {
		utils.LogError("Failed to fetch %s profile: %v", provider, err)
		utils.Error(c, http.StatusBadGateway, "Failed to get user info", nil)
		return
	}

	user, err := EnsureSocialUser(ctx, profile)
	if err != nil {
		utils.LogError("Failed to save %s user: %v", provider, err)
		utils.InternalServerError(c, "Failed to save user", nil)
		return
	}

	jwtToken, err := utils.GenerateUserToken(user.ID, user.Email)
	if err != nil {
		utils.LogError("Failed to sign user token: %v", err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	utils.LogInfo("User %s signed in with %s", user.ID, provider)
	utils.Success(c, utils.MsgLoginSuccess, gin.H{
		"token": jwtToken,
		"user":  user,
	})
}

// EnsureSocialUser creates the user for profile on first login and refreshes it afterwards
func EnsureSocialUser(ctx context.Context, profile *SocialProfile) (*models.User, error) {
	uid := profile.Provider + ":" + profile.ID
	db := config.DB.WithContext(ctx)

	var user models.User
	err := db.First(&user, "id = ?", uid).Error
	if err == nil {
		user.Email = firstNonEmpty(profile.Email, user.Email)
		user.Name = firstNonEmpty(profile.Name, user.Name)
		user.PhotoURL = firstNonEmpty(profile.PhotoURL, user.PhotoURL)
		user.LastLoginAt = time.Now()
		if user.ReferralCode == "" {
			if user.ReferralCode, err = services.AssignReferralCode(ctx, config.DB, uid); err != nil {
				return nil, err
			}
		}
		return &user, db.Save(&user).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := services.AssignReferralCode(ctx, config.DB, uid)
	if err != nil {
		return nil, err
	}
	user = models.User{
		ID:           uid,
		Provider:     profile.Provider,
		ProviderUID:  profile.ID,
		Email:        profile.Email,
		Name:         profile.Name,
		PhotoURL:     profile.PhotoURL,
		Role:         "user",
		ReferralCode: code,
		LastLoginAt:  time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	utils.LogInfo("Created %s user %s with referral code %s", profile.Provider, uid, code)
	return &user, nil
}

// GetMe returns the signed-in user
func GetMe(c *gin.Context) {
	utils.LogInfo("GetMe called")
	user := c.MustGet("user").(models.User)
	utils.Success(c, "User retrieved successfully", gin.H{"user": user})
}

func fetchProfile(ctx context.Context, provider string, oauthCfg *oauth2.Config, token *oauth2.Token) (*SocialProfile, error) {
	resp, err := oauthCfg.Client(ctx, token).Get(profileURLs[provider])
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile endpoint answered %d", resp.StatusCode)
	}
	return parseProfile(provider, body)
}

func parseProfile(provider string, body []byte) (*SocialProfile, error) {
	p := &SocialProfile{Provider: provider}
	switch provider {
	case models.ProviderGoogle:
		var g googleUserInfo
		if err := json.Unmarshal(body, &g); err != nil {
			return nil, err
		}
		p.ID, p.Email, p.Name, p.PhotoURL = g.ID, g.Email, g.Name, g.Picture
	case models.ProviderKakao:
		var k kakaoUserInfo
		if err := json.Unmarshal(body, &k); err != nil {
			return nil, err
		}
		p.ID = strconv.FormatInt(k.ID, 10)
		p.Email = k.KakaoAccount.Email
		p.Name = k.KakaoAccount.Profile.Nickname
		p.PhotoURL = k.KakaoAccount.Profile.ProfileImageURL
	case models.ProviderNaver:
		var n naverUserInfo
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, err
		}
		p.ID, p.Email, p.PhotoURL = n.Response.ID, n.Response.Email, n.Response.ProfileImage
		p.Name = firstNonEmpty(n.Response.Name, n.Response.Nickname)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	if p.ID == "" || p.ID == "0" {
		return nil, errors.New("profile has no user id")
	}
	return p, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
