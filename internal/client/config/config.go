package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/flagx"
)

// Remote modes.
const (
	RemoteGRPC   = "grpc"
	RemoteMemory = "memory"
)

// Config holds runtime settings for the phototimeline CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DataDir             string
	Codec               cryptox.Kind
	AgeWorkFactor       int
	// LogFile defaults to client.log inside DataDir.
	LogFile    string
	RemoteMode string
	// MaxMessageSize caps gRPC messages in both directions, in bytes.
	MaxMessageSize int
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DataDir = defaultDataDir()
	c.Codec = cryptox.KindAESGCM
	c.AgeWorkFactor = cryptox.DefaultAgeWorkFactor
	c.LogFile = ""
	c.RemoteMode = RemoteGRPC
	c.MaxMessageSize = common.DefaultMaxMessageSize
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".phototimeline"
	}
	return filepath.Join(home, ".phototimeline")
}

// Load applies defaults and then the config file named by -c/--config in
// args, if any. Flags are applied later by the command that registered
// them with RegisterFlags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DatabasePath is the local SQLite file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// PhotoDir holds full images and thumbnails.
func (c *Config) PhotoDir() string {
	return filepath.Join(c.DataDir, "photos")
}

func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "client.log")
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.RemoteMode {
	case RemoteGRPC:
		if c.ServerEndpointAddr == "" {
			return fmt.Errorf("server address is required in %s mode", RemoteGRPC)
		}
	case RemoteMemory:
	default:
		return fmt.Errorf("unknown remote mode %q", c.RemoteMode)
	}
	if _, err := cryptox.New(c.Codec, cryptox.Options{AgeWorkFactor: c.AgeWorkFactor}); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.RequestTimeout <= 0 || c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("timeouts and intervals must be positive")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive")
	}
	return nil
}
