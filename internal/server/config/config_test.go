package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, StoragePostgres, c.Storage)
	assert.Equal(t, BlobS3, c.BlobStore)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 256<<10, c.BlobThreshold)
	assert.Equal(t, common.DefaultMaxMessageSize, c.MaxMessageSize)
	assert.NoError(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, `{
		"endpoint_addr_grpc": ":6000",
		"storage": "memory",
		"access_token_validity_duration": "1h",
		"blob_threshold": 1024,
		"max_message_size": 4096,
		"s3_use_path_style": false
	}`)
	t.Setenv("PHOTOTIMELINE_GRPC_ADDR", ":7000")
	t.Setenv("PHOTOTIMELINE_BLOB_STORE", "memory")
	t.Setenv("PHOTOTIMELINE_ACCESS_TOKEN_VALIDITY", "90m")
	t.Setenv("PHOTOTIMELINE_MAX_MESSAGE_SIZE", "8192")

	got, err := Load([]string{"serve", "--config", path})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = ":7000"
	want.Storage = StorageMemory
	want.BlobStore = BlobMemory
	want.AccessTokenValidityDuration = 90 * time.Minute
	want.BlobThreshold = 1024
	want.MaxMessageSize = 8192
	want.S3UsePathStyle = false
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, got)
	require.NoError(t, fs.Parse([]string{"-a", ":8000", "--blob-threshold", "0", "-c", path}))
	assert.Equal(t, ":8000", got.EndpointAddrGRPC)
	assert.Equal(t, 0, got.BlobThreshold)
	assert.Equal(t, StorageMemory, got.Storage)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load([]string{"-c", writeTempJSON(t, `{"storage": 1}`)})
	assert.ErrorContains(t, err, "failed to parse config")

	t.Setenv("PHOTOTIMELINE_BLOB_THRESHOLD", "lots")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "failed to read environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory storage needs no dsn", func(c *Config) { c.Storage = StorageMemory; c.DatabaseDSN = "" }, ""},
		{"memory blobs need no bucket", func(c *Config) { c.BlobStore = BlobMemory; c.S3Bucket = "" }, ""},
		{"no address", func(c *Config) { c.EndpointAddrGRPC = "" }, "grpc address"},
		{"no secret", func(c *Config) { c.SecretKey = "" }, "secret key"},
		{"zero validity", func(c *Config) { c.AccessTokenValidityDuration = 0 }, "validity"},
		{"postgres without dsn", func(c *Config) { c.DatabaseDSN = "" }, "database dsn"},
		{"unknown storage", func(c *Config) { c.Storage = "mongo" }, "unknown storage"},
		{"s3 without bucket", func(c *Config) { c.S3Bucket = "" }, "s3 bucket"},
		{"unknown blob store", func(c *Config) { c.BlobStore = "ftp" }, "unknown blob store"},
		{"negative threshold", func(c *Config) { c.BlobThreshold = -1 }, "threshold"},
		{"zero message size", func(c *Config) { c.MaxMessageSize = 0 }, "max message size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
