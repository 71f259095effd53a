package export

import (
	"context"
	"fmt"
	"time"

	"showcase/api/internal/project"
	"showcase/api/internal/views"
)

type Service struct {
	siteName string
	now      func() time.Time
}

func NewService(siteName string) *Service {
	return &Service{siteName: siteName, now: time.Now}
}

// Export renders rec as a standalone sheet in the requested format.
func (s *Service) Export(ctx context.Context, rec project.Record, format Format) (*Result, error) {
	details := views.ResolveDetails([]project.Record{rec}, true, rec.ID())
	html, err := RenderProjectHTML(TemplateData{
		Details:     details,
		GeneratedAt: s.now(),
		SiteName:    s.siteName,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(details.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, details.Title)
	case FormatDOCX:
		return exportDOCX(ctx, html, details.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
