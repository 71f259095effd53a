package views

import (
	"strconv"
	"strings"
	"time"

	"showcase/api/internal/project"
)

type DetailsState string

const (
	StateLoading  DetailsState = "loading"
	StateNotFound DetailsState = "not_found"
	StateFound    DetailsState = "found"

	emptyValue         = "—"
	missingDescription = "No description available."
)

// InfoRow is one line of the project sidebar.
type InfoRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Details struct {
	State       DetailsState
	Project     project.Record
	Title       string
	Description string
	Thumbnail   string
	Video       project.Video
	Info        []InfoRow
	Slideshow   []string
}

// ResolveDetails finds the record for id. Until the list has been loaded the
// answer is StateLoading, never StateNotFound.
func ResolveDetails(projects []project.Record, loaded bool, id string) Details {
	if !loaded {
		return Details{State: StateLoading}
	}
	for _, rec := range projects {
		if project.LooseEqual(rec["id"], id) {
			return newFoundDetails(rec)
		}
	}
	return Details{State: StateNotFound}
}

func newFoundDetails(rec project.Record) Details {
	description := rec.String("description")
	if strings.TrimSpace(description) == "" {
		description = missingDescription
	}
	return Details{
		State:       StateFound,
		Project:     rec,
		Title:       rec.String("title"),
		Description: description,
		Thumbnail:   rec.String("thumbnail"),
		Video:       project.ResolveVideo(rec),
		Info: []InfoRow{
			infoRow("Client", rec.String("client")),
			infoRow("Industry", rec.String("industry")),
			infoRow("Category", rec.String("category")),
			infoRow("Country", rec.String("country")),
			infoRow("Year", ProjectYear(rec)),
		},
		Slideshow: rec.Slideshow(),
	}
}

func infoRow(label, value string) InfoRow {
	if strings.TrimSpace(value) == "" {
		value = emptyValue
	}
	return InfoRow{Label: label, Value: value}
}

// ProjectYear prefers the year field and falls back to the year of date.
func ProjectYear(rec project.Record) string {
	if year := strings.TrimSpace(rec.String("year")); year != "" {
		return year
	}
	date := strings.TrimSpace(rec.String("date"))
	if date == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01", "2006"} {
		if parsed, err := time.Parse(layout, date); err == nil {
			return strconv.Itoa(parsed.Year())
		}
	}
	return ""
}
