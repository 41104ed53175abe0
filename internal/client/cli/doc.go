// Package cli implements the phototimeline command line. Each invocation
// opens the local journal under the configured data directory, runs one
// command and closes it again.
//
//	phototimeline password set
//	phototimeline signin <token>
//	phototimeline journal create "Iceland 2024"
//	phototimeline entry add <journal-id> --text "Day one" --photo a.jpg
//	phototimeline sync retry
package cli
