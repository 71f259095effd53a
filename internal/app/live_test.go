package app

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"showcase/api/internal/project"

	"github.com/gorilla/websocket"
)

func (f *fakeDocuments) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.callbacks)
}

func dialLive(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestLivePushesMergedList(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	server := httptest.NewServer(h.handler)
	defer server.Close()

	conn := dialLive(t, server)
	var first liveMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial message: %v", err)
	}
	if first.Loaded || len(first.Projects) != 0 {
		t.Fatalf("initial message = %+v", first)
	}

	h.docs.push(project.Record{"id": "r1", "title": "Remote"})

	var next liveMessage
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read pushed message: %v", err)
	}
	if !next.Loaded || len(next.Projects) != 3 || next.Projects[2].ID() != "r1" {
		t.Fatalf("pushed message = %+v", next)
	}
}

func TestLiveSocketsShareOneStoreSubscription(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.load(t)
	server := httptest.NewServer(h.handler)
	defer server.Close()

	conns := make([]*websocket.Conn, 4)
	for i := range conns {
		conns[i] = dialLive(t, server)
		var first liveMessage
		if err := conns[i].ReadJSON(&first); err != nil {
			t.Fatalf("socket %d initial message: %v", i, err)
		}
		if !first.Loaded || len(first.Projects) != 2 {
			t.Fatalf("socket %d initial message = %+v", i, first)
		}
	}
	if n := h.docs.subscribers(); n != 1 {
		t.Fatalf("store subscriptions = %d, want 1", n)
	}

	h.docs.push(project.Record{"id": "r1", "title": "Remote"})
	for i, conn := range conns {
		var msg liveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("socket %d push: %v", i, err)
		}
		if len(msg.Projects) != 3 {
			t.Fatalf("socket %d push = %+v", i, msg)
		}
	}
}
