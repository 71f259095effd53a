package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"showcase/api/internal/project"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Expo 2020 v1.2", "Expo-2020-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "project"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatHTML, "html": FormatHTML, "pdf": FormatPDF, "docx": FormatDOCX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("odt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ParseFormat(odt) error = %v", err)
	}
}

func TestExportHTML(t *testing.T) {
	svc := NewService("Showcase")
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	rec := project.Record{
		"id":          "7",
		"title":       "Harbour <Festival>",
		"client":      "City",
		"date":        "2021-06-01",
		"slideshow":   "https://img/1.jpg\nhttps://img/2.jpg",
		"videoUrl":    "https://github.com/acme/media/blob/main/reel.mp4",
		"description": "",
	}
	result, err := svc.Export(context.Background(), rec, FormatHTML)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	html := string(result.Data)

	for _, want := range []string{
		"Harbour &lt;Festival&gt;",
		"Mar 5, 2024",
		"No description available.",
		"<th>Year</th><td>2021</td>",
		"<th>Industry</th><td>—</td>",
		"https://raw.githubusercontent.com/acme/media/main/reel.mp4",
		`<img src="https://img/2.jpg"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if result.Filename != "Harbour-Festival.html" || !strings.HasPrefix(result.MimeType, "text/html") {
		t.Fatalf("result = %q %q", result.Filename, result.MimeType)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewService("Showcase")
	if _, err := svc.Export(context.Background(), project.Record{"id": "1"}, Format("odt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Export() error = %v", err)
	}
}
