package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestFeed(t *testing.T) *Redis {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func waitSignal(t *testing.T, l *Listener) {
	t.Helper()
	select {
	case _, ok := <-l.C():
		if !ok {
			t.Fatal("listener closed before signalling")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

func TestRedisPublishReachesListener(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	l, err := feed.Listen(ctx, "artifacts/a/public/data/projects")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	if err := feed.Publish(ctx, "artifacts/a/public/data/projects"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitSignal(t, l)
}

func TestRedisTopicsAreIsolated(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	l, err := feed.Listen(ctx, "one")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	if err := feed.Publish(ctx, "two"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case <-l.C():
		t.Fatal("received signal for another topic")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestListenerCloseClosesChannel(t *testing.T) {
	feed := newTestFeed(t)
	l, err := feed.Listen(context.Background(), "topic")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_ = l.Close()

	for range l.C() {
	}
}

func TestListenerCoalescesSignals(t *testing.T) {
	l := newListener(func() {})
	l.signal()
	l.signal()
	l.signal()
	if got := len(l.c); got != 1 {
		t.Fatalf("buffered signals = %d, want 1", got)
	}
}
