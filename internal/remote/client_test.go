package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"showcase/api/internal/changefeed"
	"showcase/api/internal/project"
	"showcase/api/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memoryDocs struct {
	mu      sync.Mutex
	docs    []store.Document
	listErr error
}

func (m *memoryDocs) ListDocuments(_ context.Context, collection string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]store.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if doc.Collection == collection {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memoryDocs) UpsertDocument(_ context.Context, collection, id string, fields json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for i, doc := range m.docs {
		if doc.Collection == collection && doc.ID == id {
			m.docs[i].Fields = fields
			m.docs[i].UpdatedAt = now
			return nil
		}
	}
	m.docs = append(m.docs, store.Document{
		Collection: collection,
		ID:         id,
		Fields:     fields,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return nil
}

func newTestClient(t *testing.T, docs *memoryDocs) *Client {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClient(docs, changefeed.NewRedis(rdb), nil, WithResync(0))
}

func nextSnapshot(t *testing.T, ch <-chan *project.Snapshot) *project.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSnapshotInjectsDocumentKeyAsID(t *testing.T) {
	docs := &memoryDocs{docs: []store.Document{
		{Collection: "c", ID: "a", Fields: json.RawMessage(`{"title":"A"}`)},
		{Collection: "c", ID: "b", Fields: json.RawMessage(`{"id":"b","title":"B"}`)},
		{Collection: "c", ID: "bad", Fields: json.RawMessage(`[1,2]`)},
		{Collection: "other", ID: "x", Fields: json.RawMessage(`{}`)},
	}}
	c := newTestClient(t, docs)

	snap, err := c.Snapshot(context.Background(), "c")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	rec, ok := snap.Get("a")
	if !ok || rec.ID() != "a" || rec.String("title") != "A" {
		t.Fatalf("record a = %v, %v", rec, ok)
	}
}

func TestSnapshotPropagatesStoreErrors(t *testing.T) {
	docs := &memoryDocs{listErr: errors.New("db down")}
	c := newTestClient(t, docs)
	if _, err := c.Snapshot(context.Background(), "c"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSubscribeDeliversInitialAndChangedSnapshots(t *testing.T) {
	docs := &memoryDocs{docs: []store.Document{
		{Collection: "c", ID: "1", Fields: json.RawMessage(`{"id":"1","title":"Old"}`), UpdatedAt: time.Unix(1, 0)},
	}}
	c := newTestClient(t, docs)
	ctx := context.Background()

	got := make(chan *project.Snapshot, 4)
	release, err := c.Subscribe(ctx, "c", func(s *project.Snapshot) { got <- s })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer release()

	first := nextSnapshot(t, got)
	if rec, _ := first.Get("1"); rec.String("title") != "Old" {
		t.Fatalf("initial title = %q", rec.String("title"))
	}

	if err := c.Upsert(ctx, "c", "1", project.Record{"id": "1", "title": "New"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second := nextSnapshot(t, got)
	if rec, _ := second.Get("1"); rec.String("title") != "New" {
		t.Fatalf("updated title = %q", rec.String("title"))
	}
}

func TestReleaseStopsDelivery(t *testing.T) {
	docs := &memoryDocs{}
	c := newTestClient(t, docs)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	release, err := c.Subscribe(ctx, "c", func(*project.Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	release()
	release()

	mu.Lock()
	before := calls
	mu.Unlock()

	if err := c.Upsert(ctx, "c", "9", project.Record{"id": "9"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Fatalf("calls after release = %d, want %d", calls, before)
	}
}

func TestUpsertRequiresID(t *testing.T) {
	c := newTestClient(t, &memoryDocs{})
	if err := c.Upsert(context.Background(), "c", " ", project.Record{}); err == nil {
		t.Fatal("expected error for blank id")
	}
}
