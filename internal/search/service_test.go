package search

import (
	"sync"
	"testing"
	"time"

	"showcase/api/internal/project"
)

// fakeIndex stands in for Meilisearch. While gate is set, Sync blocks until
// the test closes it.
type fakeIndex struct {
	mu        sync.Mutex
	healthy   bool
	synced    [][]ProjectRecord
	gate      chan struct{}
	recovered chan struct{}
}

func newFakeIndex(healthy bool) *fakeIndex {
	return &fakeIndex{healthy: healthy, recovered: make(chan struct{}, 1)}
}

func (f *fakeIndex) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeIndex) Search(q Query) ([]Result, int, error) {
	return []Result{{ID: "remote"}}, 99, nil
}

func (f *fakeIndex) Sync(projects []ProjectRecord) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, projects)
	return nil
}

func (f *fakeIndex) Recovered() <-chan struct{} { return f.recovered }

func (f *fakeIndex) Close() {}

func (f *fakeIndex) recover() {
	f.mu.Lock()
	f.healthy = true
	f.mu.Unlock()
	f.recovered <- struct{}{}
}

func (f *fakeIndex) syncs() [][]ProjectRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]ProjectRecord{}, f.synced...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testProjects() []project.Record {
	return []project.Record{
		{"id": "1", "title": "Harbour Festival", "category": "End to end Event Organization", "client": "City of Doha", "description": "Three nights of music by the sea."},
		{"id": "2", "title": "Launch Booth", "category": "On Ground Activations", "client": "Festival Motors", "description": "A roadshow booth."},
		{"id": "3", "title": "Rebrand", "category": "Branding", "client": "Acme", "description": "Identity refresh."},
		{"title": "no id"},
	}
}

func TestServiceFallsBackToMemory(t *testing.T) {
	s := NewService(nil, nil)
	s.Reindex(testProjects())

	resp := s.Search(Query{Text: "festival"})
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Results[0].ID != "1" {
		t.Fatalf("title match should rank first, got %q", resp.Results[0].ID)
	}
	if resp.Results[0].Href != "/project?id=1" {
		t.Fatalf("href = %q", resp.Results[0].Href)
	}
}

func TestReindexPushesListAfterRecovery(t *testing.T) {
	index := newFakeIndex(false)
	s := newService(index, nil)
	defer s.Close()

	s.Reindex(testProjects())
	if resp := s.Search(Query{Text: "festival"}); resp.Total != 2 {
		t.Fatalf("while unhealthy resp = %+v, want memory results", resp)
	}
	if got := index.syncs(); len(got) != 0 {
		t.Fatalf("synced while unhealthy: %d", len(got))
	}

	index.recover()
	eventually(t, func() bool { return s.Search(Query{Text: "festival"}).Total == 99 })

	got := index.syncs()
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("syncs = %+v, want one push of 3 records", got)
	}
}

func TestReindexAppliesNewestList(t *testing.T) {
	index := newFakeIndex(true)
	gate := make(chan struct{})
	index.gate = gate
	s := newService(index, nil)
	defer s.Close()

	projects := testProjects()
	s.Reindex(projects[:1])
	// Let the worker pick up the first list and block in Sync.
	time.Sleep(20 * time.Millisecond)
	s.Reindex(projects[:2])
	s.Reindex(projects[:3])

	if resp := s.Search(Query{Text: "festival"}); resp.Total != 2 {
		t.Fatalf("stale index answered: %+v", resp)
	}

	index.mu.Lock()
	index.gate = nil
	index.mu.Unlock()
	close(gate)

	eventually(t, func() bool { return s.Search(Query{Text: "festival"}).Total == 99 })
	got := index.syncs()
	if len(got) == 0 || len(got[len(got)-1]) != 3 {
		t.Fatalf("last sync = %+v, want the newest list", got)
	}
	if len(got) > 2 {
		t.Fatalf("syncs = %d, intermediate lists should coalesce", len(got))
	}
}

func TestMemorySearch(t *testing.T) {
	m := NewMemory()
	records := make([]ProjectRecord, 0)
	for _, rec := range testProjects()[:3] {
		records = append(records, NewProjectRecord(rec))
	}
	m.Sync(records)

	tests := []struct {
		name      string
		query     Query
		wantIDs   []string
		wantTotal int
	}{
		{name: "blank", query: Query{Text: "  "}, wantTotal: 0},
		{name: "all terms must match", query: Query{Text: "festival booth"}, wantIDs: []string{"2"}, wantTotal: 1},
		{name: "category filter", query: Query{Text: "festival", Category: "On Ground Activations"}, wantIDs: []string{"2"}, wantTotal: 1},
		{name: "all category", query: Query{Text: "festival", Category: "All"}, wantIDs: []string{"1", "2"}, wantTotal: 2},
		{name: "paging", query: Query{Text: "festival", Limit: 1, Offset: 1}, wantIDs: []string{"2"}, wantTotal: 2},
		{name: "offset past end", query: Query{Text: "festival", Offset: 9}, wantTotal: 2},
		{name: "case insensitive", query: Query{Text: "ACME"}, wantIDs: []string{"3"}, wantTotal: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, total, err := m.Search(tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if total != tt.wantTotal {
				t.Fatalf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("results = %+v, want ids %v", results, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if results[i].ID != id {
					t.Fatalf("results[%d].ID = %q, want %q", i, results[i].ID, id)
				}
			}
		})
	}
}

func TestIndexKey(t *testing.T) {
	tests := map[string]string{
		"custom-1700000000000": "custom-1700000000000",
		"a b":                  "a_20b",
		"x_y":                  "x_5fy",
	}
	for in, want := range tests {
		if got := indexKey(in); got != want {
			t.Fatalf("indexKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd…" {
		t.Fatalf("truncate() = %q", got)
	}
}
