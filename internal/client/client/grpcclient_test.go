package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/docrpc"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	store  *remote.MemoryStore
	client *GRPCClient
	tokens chan string
}

// newHarness serves a MemoryStore over bufconn and records the access token
// of every request.
func newHarness(t *testing.T, tokens TokenSource, timeout time.Duration, resolve docrpc.Resolver) *harness {
	t.Helper()
	h := &harness{store: remote.NewMemoryStore(), tokens: make(chan string, 64)}
	if resolve == nil {
		resolve = func(context.Context) (remote.Store, error) { return h.store, nil }
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		tok := ""
		if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
			tok = v[0]
		}
		select {
		case h.tokens <- tok:
		default:
		}
		return handler(ctx, req)
	}))
	docrpc.RegisterDocumentStoreServer(srv, docrpc.NewStoreServer(resolve))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", tokens, timeout,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	h.client = c
	return h
}

func TestGRPCClient_DocumentRoundTrip(t *testing.T) {
	h := newHarness(t, StaticToken("tok"), time.Second, nil)
	ctx := context.Background()
	coll := h.client.Collection(common.CollectionRoots)
	assert.Equal(t, common.CollectionRoots, coll.Name())

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, coll.Set(ctx, "r1", map[string]any{"title": "Trip", "creationDate": created, "numberOfEntries": 2}))
	require.NoError(t, coll.Set(ctx, "r0", map[string]any{"title": "Other", "numberOfEntries": 0}))

	doc, err := coll.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", doc.ID)
	assert.Equal(t, "Trip", doc.Fields.String("title"))
	assert.Equal(t, created, doc.Fields.Time("creationDate"))
	assert.Equal(t, 2, doc.Fields.Int("numberOfEntries"))

	require.NoError(t, coll.Update(ctx, "r1", map[string]any{"title": "Renamed"}))
	doc, err = coll.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Fields.String("title"))
	assert.Equal(t, 2, doc.Fields.Int("numberOfEntries"))

	list, err := coll.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r0", list[0].ID)

	found, err := coll.Query(ctx, "numberOfEntries", 2)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "r1", found[0].ID)

	require.NoError(t, coll.Delete(ctx, "r1"))
	require.NoError(t, coll.Delete(ctx, "r1"))
	_, err = coll.Get(ctx, "r1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, err, common.ErrRemote)

	assert.Equal(t, "tok", <-h.tokens)
}

func TestGRPCClient_UpdateMissing(t *testing.T) {
	h := newHarness(t, nil, time.Second, nil)
	err := h.client.Collection("photos").Update(context.Background(), "nope", map[string]any{"a": 1})
	assert.ErrorIs(t, err, common.ErrNotFound)

	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, remote.MethodUpdate, re.Op)
	assert.Equal(t, "photos", re.Collection)
}

func TestGRPCClient_BatchCommit(t *testing.T) {
	h := newHarness(t, StaticToken("tok"), time.Second, nil)
	ctx := context.Background()

	require.NoError(t, h.client.Collection("photos").Set(ctx, "p0", map[string]any{"x": 1}))

	b := h.client.Batch()
	b.Set("photos", "p1", map[string]any{"journalEntryRef": "e1"})
	b.Set("photos", "p2", map[string]any{"journalEntryRef": "e1"})
	b.Delete("photos", "p0")
	assert.Equal(t, 3, b.Len())
	require.NoError(t, b.Commit(ctx))

	docs, err := h.client.Collection("photos").Query(ctx, "journalEntryRef", "e1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"p1", "p2"}, []string{docs[0].ID, docs[1].ID})

	_, err = h.client.Collection("photos").Get(ctx, "p0")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGRPCClient_EmptyBatchDoesNotCallServer(t *testing.T) {
	h := newHarness(t, nil, time.Second, nil)
	require.NoError(t, h.client.Batch().Commit(context.Background()))
	assert.Empty(t, h.store.Calls())
}

func TestGRPCClient_PingAndErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "missing token"), common.ErrUnauthorized},
		{"unavailable", common.ErrUnavailable, common.ErrUnavailable},
		{"internal", errors.New("boom"), common.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, time.Second, func(context.Context) (remote.Store, error) {
				return nil, tt.err
			})
			err := h.client.Ping(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrRemote)
		})
	}

	h := newHarness(t, nil, time.Second, nil)
	assert.NoError(t, h.client.Ping(context.Background()))
}

type slowStore struct {
	remote.Store
}

func (slowStore) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestGRPCClient_RequestTimeout(t *testing.T) {
	h := newHarness(t, nil, 50*time.Millisecond, func(context.Context) (remote.Store, error) {
		return slowStore{}, nil
	})
	err := h.client.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

type failingTokens struct{}

func (failingTokens) AccessToken(context.Context) (string, error) {
	return "", common.ErrUnauthorized
}

func TestGRPCClient_TokenSourceError(t *testing.T) {
	h := newHarness(t, failingTokens{}, time.Second, nil)
	err := h.client.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Empty(t, h.store.Calls())
}

func TestWithAccessToken_ReplacesExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "old", "x-other", "1")
	ctx = withAccessToken(ctx, "new")
	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"new"}, md.Get(common.AccessTokenHeaderName))
	assert.Equal(t, []string{"1"}, md.Get("x-other"))

	ctx = withAccessToken(ctx, "")
	md, _ = metadata.FromOutgoingContext(ctx)
	assert.Empty(t, md.Get(common.AccessTokenHeaderName))
}
