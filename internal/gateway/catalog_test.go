package gateway

import (
	"context"
	"testing"

	"showcase/api/internal/project"
)

func TestCatalogLoadsAndRebuilds(t *testing.T) {
	docs := &fakeDocuments{}
	g := New(Client{Identity: anonymousOK(), Documents: docs, Collection: "c"})
	g.Connect(context.Background(), "")
	waitClosed(t, g.Ready())

	static := []project.Record{{"id": "1", "title": "Static"}}
	cat, err := OpenCatalog(context.Background(), g, static, nil)
	if err != nil {
		t.Fatalf("OpenCatalog() error = %v", err)
	}
	defer cat.Close()

	if list, loaded := cat.Projects(); loaded || len(list) != 0 {
		t.Fatalf("before snapshot: %v, loaded=%v", list, loaded)
	}

	var watched [][]project.Record
	stop := cat.Watch(func(list []project.Record) { watched = append(watched, list) })

	docs.push(snapshotOf(
		project.Record{"id": "1", "title": "Remote"},
		project.Record{"id": "r", "title": "Only remote"},
	))
	list, loaded := cat.Projects()
	if !loaded || len(list) != 2 {
		t.Fatalf("after snapshot: %v, loaded=%v", list, loaded)
	}
	if list[0].String("title") != "Remote" || list[1].ID() != "r" {
		t.Fatalf("merged = %v", list)
	}
	if cat.Version() != 1 || len(watched) != 1 {
		t.Fatalf("version=%d watched=%d", cat.Version(), len(watched))
	}

	stop()
	docs.push(snapshotOf())
	list, _ = cat.Projects()
	if len(list) != 1 || list[0].String("title") != "Static" {
		t.Fatalf("empty snapshot should leave static list: %v", list)
	}
	if len(watched) != 1 {
		t.Fatalf("watch fired after stop")
	}
}
