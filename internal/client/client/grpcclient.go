package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/docrpc"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// TokenSource supplies the access token sent with each call. An empty
// token is sent as no token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) { return string(t), nil }

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	tokens      TokenSource
	timeout     time.Duration
}

var _ remote.Store = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (c *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// WithMaxMessageSize raises the per-call send and receive limits to n bytes.
func WithMaxMessageSize(n int) grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(n), grpc.MaxCallSendMsgSize(n))
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults, which is how tests plug in bufconn.
func NewGRPCClient(endpointURL string, tokens TokenSource, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, tokens: tokens, timeout: timeout}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(c.accessTokenInterceptor, c.timeoutInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) call(ctx context.Context, method string, req docrpc.Request) (docrpc.Response, error) {
	op := methodOp(method)
	in, err := docrpc.EncodeRequest(req)
	if err != nil {
		return docrpc.Response{}, common.NewRemoteError(op, req.Collection, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, docrpc.FullMethod(method), in, out); err != nil {
		return docrpc.Response{}, common.NewRemoteError(op, req.Collection, mapError(err))
	}
	resp, err := docrpc.DecodeResponse(out)
	if err != nil {
		return docrpc.Response{}, common.NewRemoteError(op, req.Collection, err)
	}
	return resp, nil
}

func mapError(err error) error {
	return docrpc.FromStatus(err)
}

func methodOp(method string) string {
	switch method {
	case docrpc.MethodPing:
		return remote.MethodPing
	case docrpc.MethodGet:
		return remote.MethodGet
	case docrpc.MethodQuery:
		return remote.MethodQuery
	case docrpc.MethodList:
		return remote.MethodList
	case docrpc.MethodSet:
		return remote.MethodSet
	case docrpc.MethodUpdate:
		return remote.MethodUpdate
	case docrpc.MethodDelete:
		return remote.MethodDelete
	default:
		return remote.MethodCommit
	}
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.call(ctx, docrpc.MethodPing, docrpc.Request{})
	if err != nil {
		return err
	}
	if resp.Status != docrpc.StatusOK {
		return common.NewRemoteError(remote.MethodPing, "", common.ErrUnavailable)
	}
	return nil
}

func (c *GRPCClient) Collection(name string) remote.Collection {
	return &grpcCollection{client: c, name: name}
}

func (c *GRPCClient) Batch() remote.Batch {
	return remote.NewBuffer(func(ctx context.Context, ops []remote.Op) error {
		_, err := c.call(ctx, docrpc.MethodCommit, docrpc.Request{Ops: ops})
		return err
	})
}

type grpcCollection struct {
	client *GRPCClient
	name   string
}

func (g *grpcCollection) Name() string { return g.name }

func (g *grpcCollection) Get(ctx context.Context, id string) (remote.Document, error) {
	resp, err := g.client.call(ctx, docrpc.MethodGet, docrpc.Request{Collection: g.name, ID: id})
	if err != nil {
		return remote.Document{}, err
	}
	if len(resp.Documents) != 1 {
		return remote.Document{}, common.NewRemoteError(remote.MethodGet, g.name, common.ErrNotFound)
	}
	return resp.Documents[0], nil
}

func (g *grpcCollection) Query(ctx context.Context, field string, value any) ([]remote.Document, error) {
	resp, err := g.client.call(ctx, docrpc.MethodQuery, docrpc.Request{Collection: g.name, Field: field, Value: value})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (g *grpcCollection) List(ctx context.Context) ([]remote.Document, error) {
	resp, err := g.client.call(ctx, docrpc.MethodList, docrpc.Request{Collection: g.name})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func nonNil(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}

func (g *grpcCollection) Set(ctx context.Context, id string, fields map[string]any) error {
	_, err := g.client.call(ctx, docrpc.MethodSet, docrpc.Request{Collection: g.name, ID: id, Fields: nonNil(fields)})
	return err
}

func (g *grpcCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := g.client.call(ctx, docrpc.MethodUpdate, docrpc.Request{Collection: g.name, ID: id, Fields: nonNil(fields)})
	return err
}

func (g *grpcCollection) Delete(ctx context.Context, id string) error {
	_, err := g.client.call(ctx, docrpc.MethodDelete, docrpc.Request{Collection: g.name, ID: id})
	return err
}
