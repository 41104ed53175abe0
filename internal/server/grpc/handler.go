package grpc

import (
	"context"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"google.golang.org/grpc"
)

// resolve scopes the document store to the caller. Anonymous callers only
// reach Ping.
func (s *GRPCServer) resolve(ctx context.Context) (remote.Store, error) {
	if uid, ok := userIDFromContext(ctx); ok {
		return s.docs.ForOwner(uid), nil
	}
	if method, ok := grpc.Method(ctx); ok && method == pingMethod {
		return s.docs.ForOwner(""), nil
	}
	return nil, common.ErrUnauthorized
}
