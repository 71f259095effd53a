package project

import (
	"reflect"
	"strings"
	"testing"
)

func TestRecordID(t *testing.T) {
	cases := map[string]Record{
		"abc": {"id": "abc"},
		"12":  {"id": float64(12)},
		"1.5": {"id": 1.5},
		"":    {},
	}
	for want, rec := range cases {
		if got := rec.ID(); got != want {
			t.Fatalf("ID() = %q, want %q", got, want)
		}
	}
}

func TestRecordSlideshow(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want []string
	}{
		{"json array", Record{"slideshow": []any{"a", " b ", "", 3}}, []string{"a", "b"}},
		{"string slice", Record{"slideshow": []string{"x", "  ", "y"}}, []string{"x", "y"}},
		{"newline text", Record{"slideshow": "one\n\n two \n"}, []string{"one", "two"}},
		{"missing", Record{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Slideshow(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Slideshow() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		id    any
		query string
		want  bool
	}{
		{float64(3), "3", true},
		{float64(3), "3.0", true},
		{float64(3), " 3 ", true},
		{float64(1), "1e0", true},
		{float64(0), "", true},
		{float64(3), "three", false},
		{"custom-1", "custom-1", true},
		{"a", "b", false},
		{"01", "1", false},
		{"1.0", "1", false},
		{"1e0", "1", false},
		{" a", "a", false},
		{"3", "3.0", false},
		{nil, "", false},
		{true, "1", false},
	}
	for _, tt := range tests {
		if got := LooseEqual(tt.id, tt.query); got != tt.want {
			t.Errorf("LooseEqual(%#v, %q) = %v, want %v", tt.id, tt.query, got, tt.want)
		}
	}
}

func TestParseSeed(t *testing.T) {
	records, err := ParseSeed([]byte(`[{"id":"a","title":"A"},{"id":2}]`))
	if err != nil {
		t.Fatalf("ParseSeed() error = %v", err)
	}
	if len(records) != 2 || records[1].ID() != "2" {
		t.Fatalf("records = %v", records)
	}

	if _, err := ParseSeed([]byte(`[{"id":"a"},{"id":"a"}]`)); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if _, err := ParseSeed([]byte(`[{"title":"no id"}]`)); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestLoadSeedDefault(t *testing.T) {
	records, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected bundled seed records")
	}
}
