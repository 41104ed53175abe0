package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/phototimeline/internal/timex"
)

// jsonConfig is the on-disk form. Pointer fields distinguish "absent" from
// zero; durations accept "24h" or integer nanoseconds.
type jsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	Storage                     *string         `json:"storage"`
	BlobStore                   *string         `json:"blob_store"`
	BlobThreshold               *int            `json:"blob_threshold"`
	MaxMessageSize              *int            `json:"max_message_size"`
	S3AccessKey                 *string         `json:"s3_access_key"`
	S3SecretKey                 *string         `json:"s3_secret_key"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	S3UsePathStyle              *bool           `json:"s3_use_path_style"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJSON overlays cfg with the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setIf(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&cfg.DatabaseDSN, c.DatabaseDSN)
	setIf(&cfg.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setIf(&cfg.Storage, c.Storage)
	setIf(&cfg.BlobStore, c.BlobStore)
	setIf(&cfg.BlobThreshold, c.BlobThreshold)
	setIf(&cfg.MaxMessageSize, c.MaxMessageSize)
	setIf(&cfg.S3AccessKey, c.S3AccessKey)
	setIf(&cfg.S3SecretKey, c.S3SecretKey)
	setIf(&cfg.S3Bucket, c.S3Bucket)
	setIf(&cfg.S3Region, c.S3Region)
	setIf(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&cfg.S3UsePathStyle, c.S3UsePathStyle)
	return nil
}
