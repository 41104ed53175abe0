// Package grpc serves the document store over gRPC for authenticated owners.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/phototimeline/internal/docrpc"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	docs      *services.DocumentService
	logger    logging.Logger
	jwtSecret []byte
	maxMsg    int
}

// NewGRPCServer builds a server for docs. maxMessageSize bounds received
// and sent messages; zero keeps the gRPC default.
func NewGRPCServer(a string, l logging.Logger, docs *services.DocumentService, secretKey string, maxMessageSize int) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		docs:      docs,
		jwtSecret: []byte(secretKey),
		maxMsg:    maxMessageSize,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor)}
	if s.maxMsg > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxMsg), grpc.MaxSendMsgSize(s.maxMsg))
	}
	srv := grpc.NewServer(opts...)
	docrpc.RegisterDocumentStoreServer(srv, docrpc.NewStoreServer(s.resolve))
	return srv
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}
