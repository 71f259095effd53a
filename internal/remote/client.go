// Package remote is the document store the gateway talks to: JSON documents
// in PostgreSQL, with change signals over a changefeed so every open
// subscription re-reads the full collection after a write.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"showcase/api/internal/changefeed"
	"showcase/api/internal/project"
	"showcase/api/internal/store"

	"go.uber.org/zap"
)

const (
	defaultResync   = 30 * time.Second
	relistenBackoff = 2 * time.Second
)

type DocumentStore interface {
	ListDocuments(ctx context.Context, collection string) ([]store.Document, error)
	UpsertDocument(ctx context.Context, collection, id string, fields json.RawMessage) error
}

type Client struct {
	docs   DocumentStore
	feed   changefeed.Feed
	logger *zap.Logger
	resync time.Duration
}

type Option func(*Client)

// WithResync sets how often a subscription re-reads the collection when no
// signal arrives. Zero disables the timer.
func WithResync(interval time.Duration) Option {
	return func(c *Client) { c.resync = interval }
}

func NewClient(docs DocumentStore, feed changefeed.Feed, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{docs: docs, feed: feed, logger: logger, resync: defaultResync}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot reads the whole collection. A document without an id field gets
// its document key as id; documents that are not JSON objects are skipped.
func (c *Client) Snapshot(ctx context.Context, collection string) (*project.Snapshot, error) {
	snap, _, err := c.load(ctx, collection)
	return snap, err
}

func (c *Client) load(ctx context.Context, collection string) (*project.Snapshot, string, error) {
	docs, err := c.docs.ListDocuments(ctx, collection)
	if err != nil {
		return nil, "", fmt.Errorf("load snapshot: %w", err)
	}

	snap := project.NewSnapshot()
	digest := sha256.New()
	for _, doc := range docs {
		var rec project.Record
		if err := json.Unmarshal(doc.Fields, &rec); err != nil || rec == nil {
			c.logger.Warn("skipping malformed document",
				zap.String("collection", collection),
				zap.String("id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(rec.ID()) == "" {
			rec["id"] = doc.ID
		}
		snap.Put(doc.ID, rec)
		fmt.Fprintf(digest, "%s@%d;", doc.ID, doc.UpdatedAt.UnixNano())
	}
	return snap, hex.EncodeToString(digest.Sum(nil)), nil
}

// Upsert replaces the document stored under id and signals subscribers.
// A failed signal does not fail the write; subscribers catch up on resync.
func (c *Client) Upsert(ctx context.Context, collection, id string, rec project.Record) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("upsert: id is required")
	}
	fields, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	if err := c.docs.UpsertDocument(ctx, collection, id, fields); err != nil {
		return err
	}
	if err := c.feed.Publish(ctx, collection); err != nil {
		c.logger.Warn("change signal failed", zap.String("collection", collection), zap.Error(err))
	}
	return nil
}

// Subscribe delivers the current snapshot and then a fresh one after every
// change signal. It returns a release func; after release returns, fn is
// not called again. fn must not call release itself.
func (c *Client) Subscribe(ctx context.Context, collection string, fn func(*project.Snapshot)) (func(), error) {
	listener, err := c.feed.Listen(ctx, collection)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(subCtx, collection, listener, fn)
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return release, nil
}

func (c *Client) run(ctx context.Context, collection string, listener *changefeed.Listener, fn func(*project.Snapshot)) {
	defer func() {
		if listener != nil {
			_ = listener.Close()
		}
	}()

	var tick <-chan time.Time
	if c.resync > 0 {
		ticker := time.NewTicker(c.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	lastDigest := ""
	delivered := false
	refresh := func() {
		snap, digest, err := c.load(ctx, collection)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("snapshot read failed", zap.String("collection", collection), zap.Error(err))
			}
			return
		}
		if delivered && digest == lastDigest {
			return
		}
		if ctx.Err() != nil {
			return
		}
		lastDigest, delivered = digest, true
		fn(snap)
	}

	refresh()
	for {
		var signals <-chan struct{}
		if listener != nil {
			signals = listener.C()
		}
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				c.logger.Warn("change feed closed, relistening", zap.String("collection", collection))
				listener = c.relisten(ctx, collection)
			}
			refresh()
		case <-tick:
			refresh()
		}
	}
}

func (c *Client) relisten(ctx context.Context, collection string) *changefeed.Listener {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(relistenBackoff):
		}
		listener, err := c.feed.Listen(ctx, collection)
		if err == nil {
			return listener
		}
		c.logger.Warn("relisten failed", zap.String("collection", collection), zap.Error(err))
	}
}
