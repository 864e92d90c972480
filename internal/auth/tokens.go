package auth

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig carries the signing material for access tokens and the
// lifetime of both token kinds. Access tokens are HS256 JWTs; refresh
// tokens are opaque strings persisted server-side.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func TokenConfigFromEnv() TokenConfig {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	issuer := os.Getenv("AUTH_ISSUER")
	if issuer == "" {
		issuer = "service-forum"
	}
	return TokenConfig{
		Secret:     []byte(secret),
		Issuer:     issuer,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

// IssueAccessToken signs a short-lived access token for the given subject.
func (c TokenConfig) IssueAccessToken(userID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.Issuer,
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(c.AccessTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.Secret)
}

// VerifyAccessToken parses and verifies a bearer token and returns the
// subject user id.
func (c TokenConfig) VerifyAccessToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// newRefreshToken returns an opaque 256-bit random token.
func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
