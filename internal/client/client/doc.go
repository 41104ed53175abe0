// Package client is the gRPC transport to the remote document store.
//
// GRPCClient implements remote.Store on top of the docrpc service. An
// interceptor attaches the access token from a TokenSource to every call
// and another bounds calls without a deadline by the configured request
// timeout. gRPC status codes are mapped to common sentinels
// (ErrUnauthorized, ErrUnavailable, ErrNotFound) and every failure is
// returned as a *common.RemoteError.
package client
