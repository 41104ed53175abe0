package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags binds the command-line flags to cfg. Defaults shown in
// help are the values cfg holds at registration time, so call it after
// Load.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringP("config", "c", "", "path to a JSON or TOML config file")
	fs.StringVarP(&cfg.ServerEndpointAddr, "addr", "a", cfg.ServerEndpointAddr, "address and port of the document server")
	fs.DurationVarP(&cfg.OnlineCheckInterval, "interval", "i", cfg.OnlineCheckInterval, "online check interval")
	fs.DurationVarP(&cfg.RequestTimeout, "timeout", "t", cfg.RequestTimeout, "remote request timeout")
	fs.StringVarP(&cfg.DataDir, "data-dir", "d", cfg.DataDir, "directory for the local database and photos")
	fs.StringVar((*string)(&cfg.Codec), "codec", string(cfg.Codec), "photo codec: aes-gcm or age")
	fs.IntVar(&cfg.AgeWorkFactor, "age-work-factor", cfg.AgeWorkFactor, "scrypt work factor of the age codec")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (default: client.log in the data directory)")
	fs.StringVar(&cfg.RemoteMode, "remote", cfg.RemoteMode, "remote store: grpc or memory")
	fs.IntVar(&cfg.MaxMessageSize, "max-message-size", cfg.MaxMessageSize, "largest gRPC message sent or received, in bytes")
}
