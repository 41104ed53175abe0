// Package metadata stores small client settings (password verifier, salt,
// access token) as key/value pairs in the local database.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySalt        = "password_salt"
	KeyVerifier    = "password_verifier"
	KeyAccessToken = "access_token"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}
