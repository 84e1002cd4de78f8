package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long admin and user tokens stay valid
const TokenTTL = 24 * time.Hour

var errNoJWTSecret = errors.New("JWT secret not configured")

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errNoJWTSecret
	}
	return []byte(secret), nil
}

func signClaims(claims jwt.MapClaims) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	claims["exp"] = time.Now().Add(TokenTTL).Unix()
	claims["iat"] = time.Now().Unix()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// GenerateAdminToken creates a JWT carrying admin_id
func GenerateAdminToken(adminID uint) (string, error) {
	return signClaims(jwt.MapClaims{"admin_id": adminID})
}

// GenerateUserToken creates a JWT carrying user_id and email
func GenerateUserToken(userID, email string) (string, error) {
	return signClaims(jwt.MapClaims{"user_id": userID, "email": email})
}

// ParseToken validates an HS256 token and returns its claims
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
