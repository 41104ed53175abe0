package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMeta struct {
	metadata.Repository
	values map[string][]byte
	err    error
}

func newMemMeta() *memMeta { return &memMeta{values: map[string][]byte{}} }

func (m *memMeta) Get(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.values[key], nil
}

func (m *memMeta) Set(_ context.Context, key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memMeta) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestSignInOut(t *testing.T) {
	ctx := context.Background()
	meta := newMemMeta()
	s := New(meta)

	assert.False(t, s.IsSignedIn(ctx))

	tok := token(t, jwt.MapClaims{"uid": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, s.SignIn(ctx, tok))
	assert.True(t, s.IsSignedIn(ctx))

	got, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	uid, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	require.NoError(t, s.SignOut(ctx))
	assert.False(t, s.IsSignedIn(ctx))
	_, err = s.UserID(ctx)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignIn_Rejects(t *testing.T) {
	ctx := context.Background()
	s := New(newMemMeta())

	assert.ErrorIs(t, s.SignIn(ctx, "garbage"), common.ErrInvalidToken)

	old := token(t, jwt.MapClaims{"uid": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	assert.ErrorIs(t, s.SignIn(ctx, old), common.ErrTokenExpired)
	assert.False(t, s.IsSignedIn(ctx))
}

func TestIsSignedIn_ExpiresWithClock(t *testing.T) {
	ctx := context.Background()
	s := New(newMemMeta())
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.SignIn(ctx, token(t, jwt.MapClaims{"sub": "u2", "exp": now.Add(time.Minute).Unix()})))
	assert.True(t, s.IsSignedIn(ctx))

	uid, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", uid)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, s.IsSignedIn(ctx))
}

func TestIsSignedIn_StorageError(t *testing.T) {
	meta := newMemMeta()
	meta.err = errors.New("disk")
	assert.False(t, New(meta).IsSignedIn(context.Background()))
}
