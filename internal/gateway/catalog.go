package gateway

import (
	"context"
	"sync"
	"sync/atomic"

	"showcase/api/internal/project"

	"go.uber.org/zap"
)

type catalogState struct {
	projects []project.Record
	loaded   bool
	version  uint64
}

// Catalog keeps the merged project list for the process: the static seed
// overlaid with the latest authorized remote snapshot. Before the first
// snapshot the list is empty and Loaded reports false.
type Catalog struct {
	static []project.Record
	logger *zap.Logger
	sub    *Subscription
	state  atomic.Pointer[catalogState]

	mu        sync.Mutex
	listeners map[int]func([]project.Record)
	nextID    int
}

func OpenCatalog(ctx context.Context, gw *Gateway, static []project.Record, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		static:    static,
		logger:    logger.Named("catalog"),
		listeners: make(map[int]func([]project.Record)),
	}
	c.state.Store(&catalogState{})

	sub, err := gw.Subscribe(ctx, c.apply)
	if err != nil {
		return nil, err
	}
	c.sub = sub
	return c, nil
}

func (c *Catalog) apply(snap *project.Snapshot) {
	merged := project.Merge(c.static, snap)
	prev := c.state.Load()
	next := &catalogState{projects: merged, loaded: true, version: prev.version + 1}
	c.state.Store(next)
	c.logger.Debug("catalog rebuilt",
		zap.Int("projects", len(merged)),
		zap.Int("remote", snap.Len()),
		zap.Uint64("version", next.version),
	)

	c.mu.Lock()
	listeners := make([]func([]project.Record), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(merged)
	}
}

// Projects returns the current merged list and whether a snapshot has
// arrived yet. The slice is shared; callers must not modify it.
func (c *Catalog) Projects() ([]project.Record, bool) {
	st := c.state.Load()
	return st.projects, st.loaded
}

func (c *Catalog) Version() uint64 {
	return c.state.Load().version
}

// Watch calls fn with every rebuilt list until the returned func is
// called. fn runs on the subscription goroutine and must not block.
func (c *Catalog) Watch(fn func([]project.Record)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Catalog) Close() {
	if c.sub != nil {
		c.sub.Close()
	}
}
