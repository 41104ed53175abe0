package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	signedIn bool
}

func (f *fakeSession) IsSignedIn(context.Context) bool { return f.signedIn }
func (f *fakeSession) SignOut(context.Context) error   { f.signedIn = false; return nil }

type fakePinger struct {
	err   atomic.Value
	calls atomic.Int32
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls.Add(1)
	if err, ok := f.err.Load().(error); ok && err != nil {
		return err
	}
	return ctx.Err()
}

func (f *fakePinger) fail(err error) { f.err.Store(err) }

func TestDecide(t *testing.T) {
	ctx := context.Background()
	s := &fakeSession{}
	p := &fakePinger{}
	g := New(s, p, time.Second, logging.NopLogger{})

	assert.Equal(t, DeferSignedOut, g.Decide(ctx))
	assert.Zero(t, p.calls.Load(), "signed-out decision must not touch the network")

	s.signedIn = true
	assert.Equal(t, Attempt, g.Decide(ctx))
	assert.True(t, g.Online())

	p.fail(errors.New("unreachable"))
	d := g.Decide(ctx)
	assert.Equal(t, DeferOffline, d)
	assert.True(t, d.Deferred())
	assert.False(t, g.Online())
	assert.Equal(t, "offline", d.String())
}

func TestWatch_UpdatesOnlineAndStops(t *testing.T) {
	p := &fakePinger{}
	g := New(&fakeSession{signedIn: true}, p, time.Second, logging.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, g.Online, time.Second, 5*time.Millisecond)
	p.fail(errors.New("down"))
	assert.Eventually(t, func() bool { return !g.Online() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
