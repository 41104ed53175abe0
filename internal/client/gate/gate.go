// Package gate decides whether a remote saga runs now or is deferred.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/session"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
)

type Decision int

const (
	Attempt Decision = iota
	DeferSignedOut
	DeferOffline
)

func (d Decision) String() string {
	switch d {
	case Attempt:
		return "attempt"
	case DeferSignedOut:
		return "signed-out"
	case DeferOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Deferred reports whether the remote stage must be skipped.
func (d Decision) Deferred() bool { return d != Attempt }

type Pinger interface {
	Ping(ctx context.Context) error
}

// OfflineGate attempts remote work only when the session is signed in and
// the store answers a ping within probeTimeout.
type OfflineGate struct {
	session      session.Provider
	pinger       Pinger
	probeTimeout time.Duration
	logger       logging.Logger
	online       atomic.Bool
}

func New(s session.Provider, p Pinger, probeTimeout time.Duration, l logging.Logger) *OfflineGate {
	return &OfflineGate{session: s, pinger: p, probeTimeout: probeTimeout, logger: l.With("module", "gate")}
}

func (g *OfflineGate) probe(ctx context.Context) bool {
	if g.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.probeTimeout)
		defer cancel()
	}
	err := g.pinger.Ping(ctx)
	g.setOnline(ctx, err == nil)
	return err == nil
}

func (g *OfflineGate) setOnline(ctx context.Context, online bool) {
	if g.online.Swap(online) != online {
		g.logger.Info(ctx, "remote status changed", "online", online)
	}
}

// Decide is called once per mutation before its remote saga.
func (g *OfflineGate) Decide(ctx context.Context) Decision {
	if !g.session.IsSignedIn(ctx) {
		return DeferSignedOut
	}
	if !g.probe(ctx) {
		return DeferOffline
	}
	return Attempt
}

// Online is the result of the latest probe.
func (g *OfflineGate) Online() bool { return g.online.Load() }

// Watch probes the store every interval until ctx is done.
func (g *OfflineGate) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
