package config

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:  "https://kauth.kakao.com/oauth/authorize",
		TokenURL: "https://kauth.kakao.com/oauth/token",
	}
	naverEndpoint = oauth2.Endpoint{
		AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
		TokenURL: "https://nid.naver.com/oauth2.0/token",
	}
)

// OAuthConfig returns the OAuth2 client for a social login provider.
// ok is false when the provider is unknown or has no client id.
func (c *Config) OAuthConfig(provider string) (cfg *oauth2.Config, ok bool) {
	redirect := c.PublicURL + "/api/auth/" + provider + "/callback"

	switch provider {
	case "google":
		cfg = &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  redirect,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	case "kakao":
		cfg = &oauth2.Config{
			ClientID:     c.KakaoClientID,
			ClientSecret: c.KakaoClientSecret,
			RedirectURL:  redirect,
			Scopes:       []string{"profile_nickname", "account_email"},
			Endpoint:     kakaoEndpoint,
		}
	case "naver":
		cfg = &oauth2.Config{
			ClientID:     c.NaverClientID,
			ClientSecret: c.NaverClientSecret,
			RedirectURL:  redirect,
			Endpoint:     naverEndpoint,
		}
	default:
		return nil, false
	}
	return cfg, cfg.ClientID != ""
}
