package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var ErrNoExpiry = errors.New("token has no exp claim")

// NewHTTPClient returns a client that sends token as a bearer credential on
// every request. The token is never refreshed.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeout
	return client
}

// TokenExpiry reads the exp claim without checking the signature.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// WarnIfExpired logs when the injected token is past its expiry or cannot be
// read. It reports whether the token looked usable.
func WarnIfExpired(logger *zap.Logger, token string, now time.Time) bool {
	expiry, err := TokenExpiry(token)
	if err != nil {
		logger.Warn("unable to read access token expiry", zap.Error(err))
		return false
	}
	if !expiry.After(now) {
		logger.Warn("access token has expired", zap.Time("expired_at", expiry))
		return false
	}
	logger.Info("access token valid", zap.Time("expires_at", expiry))
	return true
}
