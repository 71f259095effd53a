package search

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Memory searches a snapshot of the merged project list in process. It
// serves when Meilisearch is not configured or is down.
type Memory struct {
	records atomic.Pointer[[]ProjectRecord]
}

func NewMemory() *Memory {
	m := &Memory{}
	empty := []ProjectRecord{}
	m.records.Store(&empty)
	return m
}

func (m *Memory) Healthy() bool {
	return true
}

func (m *Memory) Sync(projects []ProjectRecord) {
	copied := append([]ProjectRecord(nil), projects...)
	m.records.Store(&copied)
}

// Search matches every term case-insensitively against the text fields. A
// title hit ranks above a hit elsewhere; ties keep list order.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, 0, nil
	}
	category := filterCategory(q.Category)

	type scored struct {
		rec   ProjectRecord
		score int
	}
	var hits []scored
	for _, rec := range *m.records.Load() {
		if category != "" && rec.Category != category {
			continue
		}
		if score := matchScore(rec, terms); score > 0 {
			hits = append(hits, scored{rec: rec, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	total := len(hits)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	results := make([]Result, 0, end-offset)
	for _, hit := range hits[offset:end] {
		results = append(results, hit.rec.result(""))
	}
	return results, total, nil
}

func matchScore(rec ProjectRecord, terms []string) int {
	title := strings.ToLower(rec.Title)
	rest := strings.ToLower(strings.Join([]string{
		rec.Description, rec.Client, rec.Industry, rec.Category, rec.Country, rec.Year,
	}, " "))

	score := 0
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			score += 2
		case strings.Contains(rest, term):
			score++
		default:
			return 0
		}
	}
	return score
}
