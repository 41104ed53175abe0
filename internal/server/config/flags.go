package config

import "github.com/spf13/pflag"

// RegisterFlags binds the server flags to cfg. Call it after Load so the
// help text shows the effective defaults.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringP("config", "c", "", "path to a JSON config file")
	fs.StringVarP(&cfg.EndpointAddrGRPC, "addr", "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVarP(&cfg.DatabaseDSN, "dsn", "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVarP(&cfg.SecretKey, "secret", "s", cfg.SecretKey, "JWT secret key")
	fs.DurationVarP(&cfg.AccessTokenValidityDuration, "token-validity", "t", cfg.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "document storage: postgres or memory")
	fs.StringVar(&cfg.BlobStore, "blob-store", cfg.BlobStore, "photo payload storage: s3 or memory")
	fs.IntVar(&cfg.BlobThreshold, "blob-threshold", cfg.BlobThreshold, "offload photo payloads larger than this many bytes (0 disables)")
	fs.IntVar(&cfg.MaxMessageSize, "max-message-size", cfg.MaxMessageSize, "largest gRPC message in bytes")
	fs.StringVarP(&cfg.S3AccessKey, "s3-access-key", "u", cfg.S3AccessKey, "S3 access key")
	fs.StringVarP(&cfg.S3SecretKey, "s3-secret-key", "p", cfg.S3SecretKey, "S3 secret key")
	fs.StringVarP(&cfg.S3Bucket, "s3-bucket", "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVarP(&cfg.S3Region, "s3-region", "g", cfg.S3Region, "S3 region")
	fs.StringVarP(&cfg.S3BaseEndpoint, "s3-endpoint", "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&cfg.S3UsePathStyle, "s3-path-style", cfg.S3UsePathStyle, "use path-style S3 addressing")
}
