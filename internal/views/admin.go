package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showcase/api/internal/project"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrMissingID     = errors.New("project id is required")
)

const (
	MessageTitleRequired = "Title is required"
	MessageIDRequired    = "Project id is required"
	MessageSaved         = "Project Saved Successfully!"
	MessageSaveFailed    = "Error saving project."

	defaultCategory = "Branding"
)

// AdminCategories is the category select of the editor.
var AdminCategories = []string{
	"Branding",
	"Concepts & Production",
	"End to end Event Organization",
	"On Ground Activations",
}

// draftFields are the keys a new draft starts with.
var draftFields = []string{"title", "category", "description", "thumbnail", "video", "client", "country"}

// Draft is an unsaved copy of one record. Slideshow stays newline-delimited
// text until the draft is turned back into a record.
type Draft struct {
	ID            string         `json:"id"`
	IsNew         bool           `json:"isNew"`
	Fields        project.Record `json:"fields"`
	SlideshowText string         `json:"slideshow"`
}

func NewDraft(now time.Time) Draft {
	id := fmt.Sprintf("custom-%d", now.UnixMilli())
	fields := project.Record{"id": id}
	for _, key := range draftFields {
		fields[key] = ""
	}
	fields["category"] = defaultCategory
	return Draft{ID: id, IsNew: true, Fields: fields}
}

// EditDraft copies rec into a draft so edits never touch the merged list.
func EditDraft(rec project.Record) Draft {
	fields := rec.Clone()
	delete(fields, "slideshow")
	return Draft{
		ID:            rec.ID(),
		Fields:        fields,
		SlideshowText: strings.Join(rec.Slideshow(), "\n"),
	}
}

func (d Draft) Get(field string) string {
	if field == "slideshow" {
		return d.SlideshowText
	}
	return d.Fields.String(field)
}

// Set edits one field, returning the updated draft.
func (d Draft) Set(field, value string) Draft {
	switch field {
	case "slideshow":
		d.SlideshowText = value
		return d
	case "id":
		d.ID = value
	}
	fields := d.Fields.Clone()
	fields[field] = value
	d.Fields = fields
	return d
}

// Record validates the draft and builds the document to upsert.
func (d Draft) Record() (project.Record, error) {
	if strings.TrimSpace(d.Fields.String("title")) == "" {
		return nil, ErrTitleRequired
	}
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = d.Fields.ID()
	}
	if id == "" {
		return nil, ErrMissingID
	}
	rec := d.Fields.Clone()
	rec["id"] = id
	rec["slideshow"] = project.SplitLines(d.SlideshowText)
	return rec, nil
}

// Writer persists a record. The gateway satisfies it.
type Writer interface {
	Save(ctx context.Context, rec project.Record) error
}

type SaveResult struct {
	OK      bool
	Message string
	Record  project.Record
	Err     error
}

type Editor struct {
	writer Writer
}

func NewEditor(writer Writer) *Editor {
	return &Editor{writer: writer}
}

// Save validates before writing; a draft that fails validation is never
// sent. The caller keeps the draft on any failure so it can retry.
func (e *Editor) Save(ctx context.Context, draft Draft) SaveResult {
	rec, err := draft.Record()
	if err != nil {
		message := MessageTitleRequired
		if errors.Is(err, ErrMissingID) {
			message = MessageIDRequired
		}
		return SaveResult{Message: message, Err: err}
	}
	if err := e.writer.Save(ctx, rec); err != nil {
		return SaveResult{Message: MessageSaveFailed, Err: fmt.Errorf("save project %s: %w", rec.ID(), err)}
	}
	return SaveResult{OK: true, Message: MessageSaved, Record: rec}
}

// AdminListItem is one row of the editor's project list.
type AdminListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Thumbnail string `json:"thumbnail"`
}

func NewAdminList(projects []project.Record) []AdminListItem {
	items := make([]AdminListItem, 0, len(projects))
	for _, rec := range projects {
		thumbnail := rec.String("thumbnail")
		if thumbnail == "" {
			thumbnail = listPlaceholder
		}
		items = append(items, AdminListItem{
			ID:        rec.ID(),
			Title:     rec.String("title"),
			Category:  rec.String("category"),
			Thumbnail: thumbnail,
		})
	}
	return items
}
