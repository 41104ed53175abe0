package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
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

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, cryptox.KindAESGCM, c.Codec)
	assert.Equal(t, RemoteGRPC, c.RemoteMode)
	assert.Equal(t, common.DefaultMaxMessageSize, c.MaxMessageSize)
	assert.NotEmpty(t, c.DataDir)
	assert.NoError(t, c.Validate())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		body   string
		mutate func(*Config)
	}{
		{
			name: "json",
			file: "client.json",
			body: `{"server_endpoint_addr":"photos.example:443","online_check_interval":"10s","codec":"age"}`,
			mutate: func(c *Config) {
				c.ServerEndpointAddr = "photos.example:443"
				c.OnlineCheckInterval = 10 * time.Second
				c.Codec = cryptox.KindAge
			},
		},
		{
			name: "toml",
			file: "client.toml",
			body: "request_timeout = \"2s\"\ndata_dir = \"/tmp/pt\"\nremote_mode = \"memory\"\nage_work_factor = 12\nmax_message_size = 1048576\n",
			mutate: func(c *Config) {
				c.MaxMessageSize = 1 << 20
				c.RequestTimeout = 2 * time.Second
				c.DataDir = "/tmp/pt"
				c.RemoteMode = RemoteMemory
				c.AgeWorkFactor = 12
			},
		},
		{
			name: "json nanoseconds",
			file: "client.json",
			body: `{"online_check_interval": 5000000000, "log_file": "/var/log/pt.log"}`,
			mutate: func(c *Config) {
				c.OnlineCheckInterval = 5 * time.Second
				c.LogFile = "/var/log/pt.log"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			got, err := Load([]string{"journal", "list", "-c", path})
			require.NoError(t, err)

			want := defaults()
			tt.mutate(&want)
			if diff := cmp.Diff(want, *got); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"--config=" + filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	bad := writeFile(t, "bad.toml", "request_timeout = [")
	_, err = Load([]string{"-c", bad})
	require.Error(t, err)

	badDuration := writeFile(t, "bad.json", `{"request_timeout": "soon"}`)
	_, err = Load([]string{"-c", badDuration})
	require.Error(t, err)
}

func TestRegisterFlags_OverrideFile(t *testing.T) {
	path := writeFile(t, "client.json", `{"server_endpoint_addr":"file:1","request_timeout":"2s"}`)
	args := []string{"-c", path, "-a", "flag:2", "--codec", "age", "-i", "1m", "--max-message-size", "2048"}

	cfg, err := Load(args)
	require.NoError(t, err)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, cfg)
	require.NoError(t, fs.Parse(args))

	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.OnlineCheckInterval)
	assert.Equal(t, cryptox.KindAge, cfg.Codec)
	assert.Equal(t, 2048, cfg.MaxMessageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown remote", func(c *Config) { c.RemoteMode = "carrier-pigeon" }},
		{"grpc without address", func(c *Config) { c.ServerEndpointAddr = "" }},
		{"unknown codec", func(c *Config) { c.Codec = "rot13" }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero message size", func(c *Config) { c.MaxMessageSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := defaults()
	c.RemoteMode = RemoteMemory
	c.ServerEndpointAddr = ""
	assert.NoError(t, c.Validate())
}

func TestPaths(t *testing.T) {
	c := Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "journal.db"), c.DatabasePath())
	assert.Equal(t, filepath.Join("/data", "photos"), c.PhotoDir())
	assert.Equal(t, filepath.Join("/data", "client.log"), c.LogPath())
	c.LogFile = "/elsewhere.log"
	assert.Equal(t, "/elsewhere.log", c.LogPath())
}
