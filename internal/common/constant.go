package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultMaxMessageSize is the default gRPC message limit on both sides.
// A whole photo batch travels in one message.
const DefaultMaxMessageSize = 64 << 20

// Remote collection names.
const (
	CollectionRoots   = "roots"
	CollectionEntries = "entries"
	CollectionPhotos  = "photos"
)
