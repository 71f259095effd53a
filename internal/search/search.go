package search

import (
	"fmt"
	"strings"

	"showcase/api/internal/project"
	"showcase/api/internal/views"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Category  string `json:"category"`
	Client    string `json:"client"`
	Thumbnail string `json:"thumbnail"`
	Href      string `json:"href"`
}

// Query describes a search request. An empty Category or "All" searches
// every category.
type Query struct {
	Text     string
	Category string
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Client      string `json:"client"`
	Industry    string `json:"industry"`
	Category    string `json:"category"`
	Country     string `json:"country"`
	Year        string `json:"year"`
	Thumbnail   string `json:"thumbnail"`
}

// NewProjectRecord flattens a record into its indexed form.
func NewProjectRecord(rec project.Record) ProjectRecord {
	return ProjectRecord{
		Key:         indexKey(rec.ID()),
		ID:          rec.ID(),
		Title:       rec.String("title"),
		Description: rec.String("description"),
		Client:      rec.String("client"),
		Industry:    rec.String("industry"),
		Category:    rec.String("category"),
		Country:     rec.String("country"),
		Year:        views.ProjectYear(rec),
		Thumbnail:   rec.String("thumbnail"),
	}
}

func (p ProjectRecord) result(snippet string) Result {
	if snippet == "" {
		snippet = truncate(p.Description, 160)
	}
	return Result{
		ID:        p.ID,
		Title:     p.Title,
		Snippet:   snippet,
		Category:  p.Category,
		Client:    p.Client,
		Thumbnail: p.Thumbnail,
		Href:      views.DetailsHref(p.ID),
	}
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

func filterCategory(category string) string {
	category = views.NormalizeCategory(category)
	if category == views.CategoryAll {
		return ""
	}
	return category
}

// indexKey maps an id onto the characters Meilisearch accepts as a primary
// key ([A-Za-z0-9_-]). Other bytes are hex-escaped after an underscore.
func indexKey(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}
