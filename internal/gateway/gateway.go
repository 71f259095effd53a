// Package gateway owns the connection to the hosted document store for one
// process: it establishes an identity, gates snapshot delivery on that
// identity, and routes admin saves to the project collection.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"showcase/api/internal/identity"
	"showcase/api/internal/project"

	"go.uber.org/zap"
)

var (
	ErrMissingID     = errors.New("gateway: record has no id")
	ErrNotAuthorized = errors.New("gateway: identity not established")
	ErrClosed        = errors.New("gateway: closed")
)

// Identity signs the process in, either with a bootstrap token or
// anonymously.
type Identity interface {
	SignInWithCustomToken(ctx context.Context, token string) (identity.Identity, error)
	SignInAnonymously(ctx context.Context) (identity.Identity, error)
}

// Documents is the hosted store. Subscribe returns a release func; after it
// returns fn is not called again.
type Documents interface {
	Subscribe(ctx context.Context, collection string, fn func(*project.Snapshot)) (func(), error)
	Upsert(ctx context.Context, collection, id string, rec project.Record) error
}

// Client bundles what a Gateway needs. Collection is the full path of the
// project collection.
type Client struct {
	Identity   Identity
	Documents  Documents
	Collection string
	Logger     *zap.Logger
}

type Gateway struct {
	client Client
	logger *zap.Logger

	ready     chan struct{}
	connected chan struct{}

	mu         sync.Mutex
	connecting bool
	ident      identity.Identity
	err        error
	closed     bool
	subs       map[*Subscription]struct{}
}

func New(client Client) *Gateway {
	logger := client.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		client:    client,
		logger:    logger.Named("gateway"),
		ready:     make(chan struct{}),
		connected: make(chan struct{}),
		subs:      make(map[*Subscription]struct{}),
	}
}

func (g *Gateway) Collection() string {
	return g.client.Collection
}

// Connect establishes the process identity in the background. A non-empty
// bootstrapToken is exchanged first; without one the gateway signs in
// anonymously. On failure the error is logged, Err reports it and Ready
// never fires. Calls after the first are no-ops.
func (g *Gateway) Connect(ctx context.Context, bootstrapToken string) {
	g.mu.Lock()
	if g.connecting || g.closed {
		g.mu.Unlock()
		return
	}
	g.connecting = true
	g.mu.Unlock()

	go func() {
		defer close(g.connected)
		ident, err := g.signIn(ctx, strings.TrimSpace(bootstrapToken))

		g.mu.Lock()
		defer g.mu.Unlock()
		if err != nil {
			g.err = err
			g.logger.Error("identity setup failed", zap.Error(err))
			return
		}
		if g.closed {
			return
		}
		g.ident = ident
		close(g.ready)
		g.logger.Info("identity established",
			zap.String("uid", ident.UID),
			zap.Bool("anonymous", ident.Anonymous),
		)
	}()
}

func (g *Gateway) signIn(ctx context.Context, token string) (identity.Identity, error) {
	if token != "" {
		ident, err := g.client.Identity.SignInWithCustomToken(ctx, token)
		if err != nil {
			return identity.Identity{}, fmt.Errorf("custom token sign-in: %w", err)
		}
		return ident, nil
	}
	ident, err := g.client.Identity.SignInAnonymously(ctx)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("anonymous sign-in: %w", err)
	}
	return ident, nil
}

// Ready is closed once an identity exists.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Settled is closed when the identity attempt has finished, successfully
// or not.
func (g *Gateway) Settled() <-chan struct{} {
	return g.connected
}

func (g *Gateway) isReady() bool {
	select {
	case <-g.ready:
		return true
	default:
		return false
	}
}

func (g *Gateway) Identity() (identity.Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ident, g.isReady()
}

func (g *Gateway) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Subscribe opens a store subscription immediately. Snapshots that arrive
// before the identity is ready are held; only the latest is delivered once
// it is. If identity setup fails nothing is ever delivered.
func (g *Gateway) Subscribe(ctx context.Context, fn func(*project.Snapshot)) (*Subscription, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	sub := &Subscription{gateway: g, fn: fn, done: make(chan struct{})}
	g.subs[sub] = struct{}{}
	g.mu.Unlock()

	release, err := g.client.Documents.Subscribe(ctx, g.client.Collection, sub.receive)
	if err != nil {
		g.forget(sub)
		return nil, fmt.Errorf("subscribe %s: %w", g.client.Collection, err)
	}
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		release()
		return sub, nil
	}
	sub.release = release
	sub.mu.Unlock()

	go func() {
		select {
		case <-g.ready:
			sub.flush()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Save writes rec under its id. A record without an id is never written.
func (g *Gateway) Save(ctx context.Context, rec project.Record) error {
	id := strings.TrimSpace(rec.ID())
	if id == "" {
		return ErrMissingID
	}
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !g.isReady() {
		return ErrNotAuthorized
	}
	if err := g.client.Documents.Upsert(ctx, g.client.Collection, id, rec); err != nil {
		g.logger.Warn("save failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("save %s: %w", id, err)
	}
	g.logger.Info("project saved", zap.String("id", id))
	return nil
}

// Close ends every open subscription. It does not wait for a pending
// identity attempt.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	subs := make([]*Subscription, 0, len(g.subs))
	for sub := range g.subs {
		subs = append(subs, sub)
	}
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (g *Gateway) forget(sub *Subscription) {
	g.mu.Lock()
	delete(g.subs, sub)
	g.mu.Unlock()
}

// Subscription is the handle returned by Gateway.Subscribe. After Close
// returns the callback is not invoked again. The callback must not call
// Close itself.
type Subscription struct {
	gateway *Gateway
	fn      func(*project.Snapshot)
	done    chan struct{}

	mu      sync.Mutex
	pending *project.Snapshot
	release func()
	closed  bool
}

func (s *Subscription) receive(snap *project.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !s.gateway.isReady() {
		s.pending = snap
		return
	}
	s.pending = nil
	s.fn(snap)
}

func (s *Subscription) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pending == nil {
		return
	}
	snap := s.pending
	s.pending = nil
	s.fn(snap)
}

func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	release := s.release
	close(s.done)
	s.mu.Unlock()

	if release != nil {
		release()
	}
	s.gateway.forget(s)
}
