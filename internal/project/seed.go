package project

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed seed.json
var defaultSeed []byte

// LoadSeed reads the static records from path, or the bundled seed when path
// is empty. Every record needs an id and ids must be unique.
func LoadSeed(path string) ([]Record, error) {
	data := defaultSeed
	if strings.TrimSpace(path) != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		data = contents
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	var records []Record
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("seed record %d is null", i)
		}
		id := rec.ID()
		if id == "" {
			return nil, fmt.Errorf("seed record %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed record %d: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
	}
	return records, nil
}
