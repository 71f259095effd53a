package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxProjects = "showcase_projects"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
	once    sync.Once

	recovered chan struct{}

	mu      sync.Mutex
	indexed map[string]struct{}
}

// NewMeili creates a Meilisearch client and configures the project index.
// An unreachable server is not an error; the health loop picks it up later.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client:  meili.New(url, meili.WithAPIKey(apiKey)),
		logger:  logger.Named("meili"),
		done:    make(chan struct{}),
		indexed: make(map[string]struct{}),

		recovered: make(chan struct{}, 1),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxProjects,
		PrimaryKey: "key",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxProjects), zap.Error(err))
	}

	index := m.client.Index(idxProjects)
	filterable := []interface{}{"category", "client", "year"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"title", "client", "description", "industry", "category", "country"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
				m.mu.Lock()
				m.indexed = make(map[string]struct{})
				m.mu.Unlock()
				select {
				case m.recovered <- struct{}{}:
				default:
				}
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	m.once.Do(func() { close(m.done) })
}

// Recovered fires once per outage, after the index has been reconfigured.
func (m *Meili) Recovered() <-chan struct{} {
	return m.recovered
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}
	sr := &meili.SearchRequest{
		IndexUID:              idxProjects,
		Query:                 q.Text,
		Limit:                 limit,
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"title", "description"},
		AttributesToCrop:      []string{"description"},
		CropLength:            30,
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if category := filterCategory(q.Category); category != "" {
		sr.Filter = []string{fmt.Sprintf("category = %q", category)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Result
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	rec := ProjectRecord{
		ID:          decodeString(hit, "id"),
		Title:       firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Description: decodeString(hit, "description"),
		Client:      decodeString(hit, "client"),
		Category:    decodeString(hit, "category"),
		Thumbnail:   decodeString(hit, "thumbnail"),
	}
	return rec.result(decodeFormattedString(hit, "description"))
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// Sync makes the index match projects: records are upserted and keys that
// are no longer present are deleted.
func (m *Meili) Sync(projects []ProjectRecord) error {
	if len(projects) > 0 {
		if _, err := m.client.Index(idxProjects).AddDocuments(projects, nil); err != nil {
			m.healthy.Store(false)
			return fmt.Errorf("index projects: %w", err)
		}
	}

	current := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		current[p.Key] = struct{}{}
	}

	m.mu.Lock()
	var stale []string
	for key := range m.indexed {
		if _, ok := current[key]; !ok {
			stale = append(stale, key)
		}
	}
	m.indexed = current
	m.mu.Unlock()

	for _, key := range stale {
		if _, err := m.client.Index(idxProjects).DeleteDocument(key, nil); err != nil {
			m.logger.Warn("delete stale project", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
