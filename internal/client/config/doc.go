// Package config loads runtime configuration for the phototimeline CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional config file given with -c/--config. A .toml extension
//     selects TOML, anything else is read as JSON.
//  3. Command-line flags registered with RegisterFlags.
//
// Durations in files are strings like "3s" or integer nanoseconds:
//
//	server_endpoint_addr = "127.0.0.1:50051"
//	online_check_interval = "3s"
//	request_timeout = "10s"
//	data_dir = "/home/me/.phototimeline"
//	codec = "age"
//	remote_mode = "grpc"
//	max_message_size = 67108864
package config
