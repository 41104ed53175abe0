package server

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/server/auth"
	"github.com/dmitrijs2005/phototimeline/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.Storage = config.StorageMemory
	c.BlobStore = config.BlobMemory
	return c
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.Storage = "mongo"
	_, err := NewApp(context.Background(), c, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid config")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	var logs bytes.Buffer
	app, err := NewApp(context.Background(), memoryConfig(), &logs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	assert.Contains(t, logs.String(), "Starting app...")
	assert.Contains(t, logs.String(), `"storage":"memory"`)
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	c := memoryConfig()
	c.EndpointAddrGRPC = "127.0.0.1:99999"
	app, err := NewApp(context.Background(), c, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestExecute_Token(t *testing.T) {
	var out bytes.Buffer
	err := Execute(context.Background(), []string{"token", "--user", "u42", "--secret", "s3cr3t", "-t", "1h"}, &out)
	require.NoError(t, err)

	uid, err := auth.GetUserIDFromToken(strings.TrimSpace(out.String()), []byte("s3cr3t"))
	require.NoError(t, err)
	assert.Equal(t, "u42", uid)
}

func TestExecute_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, Execute(context.Background(), []string{"token"}, &out), "user flag is required")
	assert.ErrorContains(t, Execute(context.Background(), []string{"token", "--user", "u", "--secret", ""}, &out), "secret key")
	assert.ErrorContains(t, Execute(context.Background(), []string{"serve", "--storage", "mongo"}, &out), "unknown storage")
}
