package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager signs and validates session tokens.
type JWTManager struct {
	secretKey string
	duration  time.Duration
}

// Claims is the session token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ProviderClaims is the payload of an identity token issued by the
// single-sign-on provider.
type ProviderClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// NewJWTManager returns a configured JWTManager.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{secretKey: secretKey, duration: duration}
}

// GenerateToken issues a signed session token for a user.
func (m *JWTManager) GenerateToken(userID, email string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.duration)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a session token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// IssueProviderToken signs an SSO identity token. The server only verifies
// these; issuing lives here for development tooling and tests.
func (m *JWTManager) IssueProviderToken(subject, email, name, picture string) (string, error) {
	claims := &ProviderClaims{
		Email:   email,
		Name:    name,
		Picture: picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secretKey))
}

// VerifyProviderToken validates an SSO identity token.
func (m *JWTManager) VerifyProviderToken(tokenString string) (*ProviderClaims, error) {
	claims := &ProviderClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("provider token has no subject")
	}
	return claims, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
