// Package views derives what each page shows from the merged project list.
package views

import (
	"net/url"

	"showcase/api/internal/project"
)

const (
	CategoryAll = "All"

	thumbnailPlaceholder = "https://placehold.co/400x300?text=No+Image"
	listPlaceholder      = "https://via.placeholder.com/50"
)

// Categories is the gallery filter bar, in display order.
var Categories = []string{
	CategoryAll,
	"End to end Event Organization",
	"On Ground Activations",
	"Branding",
	"Concepts & Production",
}

// Card is one gallery tile.
type Card struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Thumbnail string `json:"thumbnail"`
	VideoURL  string `json:"videoUrl"`
	HasVideo  bool   `json:"hasVideo"`
	Href      string `json:"href"`
}

type Home struct {
	Category   string
	Categories []string
	Projects   []project.Record
	Cards      []Card
}

// NewHome filters projects by exact category. "All", blank and unknown
// selectors show everything.
func NewHome(projects []project.Record, category string) Home {
	category = NormalizeCategory(category)
	filtered := FilterByCategory(projects, category)
	cards := make([]Card, 0, len(filtered))
	for _, rec := range filtered {
		cards = append(cards, NewCard(rec))
	}
	return Home{
		Category:   category,
		Categories: Categories,
		Projects:   filtered,
		Cards:      cards,
	}
}

func NormalizeCategory(category string) string {
	for _, known := range Categories {
		if category == known {
			return category
		}
	}
	return CategoryAll
}

func FilterByCategory(projects []project.Record, category string) []project.Record {
	if category == CategoryAll {
		return projects
	}
	out := make([]project.Record, 0, len(projects))
	for _, rec := range projects {
		if rec.String("category") == category {
			out = append(out, rec)
		}
	}
	return out
}

func NewCard(rec project.Record) Card {
	video := project.ResolveVideo(rec)
	thumbnail := rec.String("thumbnail")
	if thumbnail == "" {
		thumbnail = thumbnailPlaceholder
	}
	return Card{
		ID:        rec.ID(),
		Title:     rec.String("title"),
		Category:  rec.String("category"),
		Thumbnail: thumbnail,
		VideoURL:  video.URL,
		HasVideo:  video.HasVideo,
		Href:      DetailsHref(rec.ID()),
	}
}

func DetailsHref(id string) string {
	return "/project?id=" + url.QueryEscape(id)
}
