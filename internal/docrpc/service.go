// Package docrpc carries the remote document store over gRPC. Messages are
// google.protobuf.Struct values, so no generated code is needed beyond the
// service descriptor below.
package docrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "phototimeline.v1.DocumentStore"

const (
	MethodPing   = "Ping"
	MethodGet    = "Get"
	MethodQuery  = "Query"
	MethodList   = "List"
	MethodSet    = "Set"
	MethodUpdate = "Update"
	MethodDelete = "Delete"
	MethodCommit = "Commit"
)

// FullMethod returns the gRPC path of a method, e.g.
// "/phototimeline.v1.DocumentStore/Get".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// DocumentStoreServer is the server API of the document store service.
type DocumentStoreServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Set(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Commit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(DocumentStoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DocumentStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DocumentStoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the document store service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodPing, DocumentStoreServer.Ping),
		unaryHandler(MethodGet, DocumentStoreServer.Get),
		unaryHandler(MethodQuery, DocumentStoreServer.Query),
		unaryHandler(MethodList, DocumentStoreServer.List),
		unaryHandler(MethodSet, DocumentStoreServer.Set),
		unaryHandler(MethodUpdate, DocumentStoreServer.Update),
		unaryHandler(MethodDelete, DocumentStoreServer.Delete),
		unaryHandler(MethodCommit, DocumentStoreServer.Commit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phototimeline/v1/documents.proto",
}
