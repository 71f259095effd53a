package gitrepo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"showcase/api/internal/project"
)

func TestProjectHistoryLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)
	const collection = "artifacts/app/public/data/projects"

	first, err := svc.Commit(collection, project.Record{"id": "custom-1", "title": "Draft"}, "admin", "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if first.Hash == "" || first.Message != "Save project custom-1" {
		t.Fatalf("first commit = %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, pathSafe(collection), "custom-1.json")); err != nil {
		t.Fatalf("record file missing: %v", err)
	}

	if _, err := svc.Commit(collection, project.Record{"id": "custom-1", "title": "Draft"}, "admin", ""); !errors.Is(err, ErrUnchanged) {
		t.Fatalf("Commit() unchanged error = %v", err)
	}

	second, err := svc.Commit(collection, project.Record{"id": "custom-1", "title": "Final"}, "admin", "Rename")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := svc.Commit(collection, project.Record{"id": "other", "title": "Other"}, "admin", ""); err != nil {
		t.Fatalf("Commit() other error = %v", err)
	}

	history, err := svc.History(collection, "custom-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v, want 2 entries", history)
	}

	old, info, err := svc.Revision(collection, "custom-1", first.Hash)
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if old.String("title") != "Draft" || info.Hash != first.Hash {
		t.Fatalf("revision = %v %+v", old, info)
	}
	latest, _, err := svc.Revision(collection, "custom-1", second.Hash)
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if latest.String("title") != "Final" {
		t.Fatalf("latest title = %q", latest.String("title"))
	}

	limited, err := svc.History(collection, "custom-1", 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited history = %d entries", len(limited))
	}
}

func TestHistoryOfUnknownCollectionIsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	history, err := svc.History("nothing", "1", 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %+v", history)
	}
	if _, _, err := svc.Revision("nothing", "1", "abc1234"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("Revision() error = %v", err)
	}
}

func TestRevisionOfMissingRecord(t *testing.T) {
	svc := New(t.TempDir())
	info, err := svc.Commit("c", project.Record{"id": "1"}, "admin", "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, _, err := svc.Revision("c", "2", info.Hash); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("Revision() error = %v", err)
	}
}

func TestPathSafe(t *testing.T) {
	tests := map[string]string{
		"custom-1": "custom-1",
		"../x":     "_2e_2e_2fx",
		"":         "_",
		"a/b":      "a_2fb",
	}
	for in, want := range tests {
		if got := pathSafe(in); got != want {
			t.Fatalf("pathSafe(%q) = %q, want %q", in, got, want)
		}
	}
}
