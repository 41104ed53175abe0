package docrpc

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"google.golang.org/protobuf/types/known/structpb"
)

// Resolver returns the store that serves the caller identified by ctx.
type Resolver func(ctx context.Context) (remote.Store, error)

// StoreServer serves any remote.Store over the document store service.
type StoreServer struct {
	resolve Resolver
}

var _ DocumentStoreServer = (*StoreServer)(nil)

func NewStoreServer(resolve Resolver) *StoreServer {
	return &StoreServer{resolve: resolve}
}

func (s *StoreServer) open(ctx context.Context, in *structpb.Struct, needID bool) (remote.Store, Request, error) {
	req, err := DecodeRequest(in)
	if err != nil {
		return nil, Request{}, ToStatus(err)
	}
	if req.Collection == "" {
		return nil, Request{}, ToStatus(fmt.Errorf("%w: collection is required", common.ErrBadRequest))
	}
	if needID && req.ID == "" {
		return nil, Request{}, ToStatus(fmt.Errorf("%w: id is required", common.ErrBadRequest))
	}
	store, err := s.resolve(ctx)
	if err != nil {
		return nil, Request{}, ToStatus(err)
	}
	return store, req, nil
}

func reply(docs []remote.Document, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, ToStatus(err)
	}
	out, err := EncodeResponse(Response{Documents: docs})
	return out, ToStatus(err)
}

func (s *StoreServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.resolve(ctx)
	if err != nil {
		return nil, ToStatus(err)
	}
	if err := store.Ping(ctx); err != nil {
		return nil, ToStatus(err)
	}
	out, err := EncodeResponse(Response{Status: StatusOK})
	return out, ToStatus(err)
}

func (s *StoreServer) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, true)
	if err != nil {
		return nil, err
	}
	doc, err := store.Collection(req.Collection).Get(ctx, req.ID)
	if err != nil {
		return nil, ToStatus(err)
	}
	return reply([]remote.Document{doc}, nil)
}

func (s *StoreServer) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, false)
	if err != nil {
		return nil, err
	}
	if req.Field == "" {
		return nil, ToStatus(fmt.Errorf("%w: field is required", common.ErrBadRequest))
	}
	return reply(store.Collection(req.Collection).Query(ctx, req.Field, req.Value))
}

func (s *StoreServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, false)
	if err != nil {
		return nil, err
	}
	return reply(store.Collection(req.Collection).List(ctx))
}

func (s *StoreServer) Set(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, true)
	if err != nil {
		return nil, err
	}
	return reply(nil, store.Collection(req.Collection).Set(ctx, req.ID, req.Fields))
}

func (s *StoreServer) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, true)
	if err != nil {
		return nil, err
	}
	return reply(nil, store.Collection(req.Collection).Update(ctx, req.ID, req.Fields))
}

func (s *StoreServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	store, req, err := s.open(ctx, in, true)
	if err != nil {
		return nil, err
	}
	return reply(nil, store.Collection(req.Collection).Delete(ctx, req.ID))
}

func (s *StoreServer) Commit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := DecodeRequest(in)
	if err != nil {
		return nil, ToStatus(err)
	}
	store, err := s.resolve(ctx)
	if err != nil {
		return nil, ToStatus(err)
	}
	batch := store.Batch()
	for _, op := range req.Ops {
		switch op.Kind {
		case remote.OpSet:
			batch.Set(op.Collection, op.ID, op.Fields)
		case remote.OpDelete:
			batch.Delete(op.Collection, op.ID)
		default:
			return nil, ToStatus(fmt.Errorf("%w: unknown op %q", common.ErrBadRequest, op.Kind))
		}
	}
	return reply(nil, batch.Commit(ctx))
}
