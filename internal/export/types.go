// Package export renders a project sheet as HTML, PDF or DOCX.
package export

import "errors"

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts the query-string spelling; blank means HTML.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF, FormatDOCX:
		return Format(value), nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("export: unsupported format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
