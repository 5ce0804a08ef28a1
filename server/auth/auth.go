// Package auth issues and verifies the session tokens that stand in for
// the product's "Session": created on sign-in, carried as a cookie (or
// bearer header), destroyed on sign-out or expiry.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// AccessTokenCookieName is the cookie carrying the session token.
	AccessTokenCookieName = "tradechat.access-token"

	// AccessTokenDuration is the session lifetime.
	AccessTokenDuration = 7 * 24 * time.Hour

	issuer   = "tradechat"
	audience = "user.access-token"
)

// Claims are the session claims embedded in an access token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateAccessToken generates an access token for the given user.
func GenerateAccessToken(username string, userID int32, expirationTime time.Time, secret []byte) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseAccessToken verifies the token signature and returns its claims.
func ParseAccessToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil {
		return nil, errors.Wrap(err, "invalid or expired access token")
	}
	if !token.Valid {
		return nil, errors.New("invalid access token")
	}
	return claims, nil
}
