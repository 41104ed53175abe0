package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/timex"
)

// fileConfig is the on-disk form. Pointer fields distinguish "absent" from
// zero so a file only overrides what it names.
type fileConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr" toml:"server_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	DataDir             *string         `json:"data_dir" toml:"data_dir"`
	Codec               *string         `json:"codec" toml:"codec"`
	AgeWorkFactor       *int            `json:"age_work_factor" toml:"age_work_factor"`
	LogFile             *string         `json:"log_file" toml:"log_file"`
	RemoteMode          *string         `json:"remote_mode" toml:"remote_mode"`
	MaxMessageSize      *int            `json:"max_message_size" toml:"max_message_size"`
}

// parseFile overlays cfg with path. Files ending in .toml are TOML,
// everything else is JSON.
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.Codec != nil {
		cfg.Codec = cryptox.Kind(*fc.Codec)
	}
	if fc.AgeWorkFactor != nil {
		cfg.AgeWorkFactor = *fc.AgeWorkFactor
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.RemoteMode != nil {
		cfg.RemoteMode = *fc.RemoteMode
	}
	if fc.MaxMessageSize != nil {
		cfg.MaxMessageSize = *fc.MaxMessageSize
	}
	return nil
}
