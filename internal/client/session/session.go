// Package session tracks whether the user is signed in to the remote store.
// The access token is a JWT issued by the server and kept in the local
// metadata table; the client never verifies its signature, only its expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Provider is what the offline gate consumes.
type Provider interface {
	IsSignedIn(ctx context.Context) bool
	SignOut(ctx context.Context) error
}

type JWTSession struct {
	meta metadata.Repository
	now  func() time.Time
}

var _ Provider = (*JWTSession)(nil)

func New(meta metadata.Repository) *JWTSession {
	return &JWTSession{meta: meta, now: time.Now}
}

// parse reads the claims without verifying the signature.
func (s *JWTSession) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *JWTSession) expired(claims jwt.MapClaims) bool {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// SignIn stores token after checking that it parses and has not expired.
func (s *JWTSession) SignIn(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if s.expired(claims) {
		return common.ErrTokenExpired
	}
	return s.meta.Set(ctx, metadata.KeyAccessToken, []byte(token))
}

func (s *JWTSession) SignOut(ctx context.Context) error {
	return s.meta.Delete(ctx, metadata.KeyAccessToken)
}

// AccessToken returns the stored token, or "" when signed out or expired.
func (s *JWTSession) AccessToken(ctx context.Context) (string, error) {
	raw, err := s.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil || raw == nil {
		return "", err
	}
	claims, err := s.parse(string(raw))
	if err != nil || s.expired(claims) {
		return "", nil
	}
	return string(raw), nil
}

// IsSignedIn reports whether a valid, unexpired token is stored. Storage
// errors count as signed out.
func (s *JWTSession) IsSignedIn(ctx context.Context) bool {
	tok, err := s.AccessToken(ctx)
	return err == nil && tok != ""
}

// UserID returns the owner claim of the stored token.
func (s *JWTSession) UserID(ctx context.Context) (string, error) {
	tok, err := s.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", common.ErrUnauthorized
	}
	claims, err := s.parse(tok)
	if err != nil {
		return "", err
	}
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		return uid, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.Join(common.ErrInvalidToken, err)
	}
	return sub, nil
}
