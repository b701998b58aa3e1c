// Package catalogfile loads the registry document from a registry.json file.
package catalogfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/faktion/registry/domain/catalog"
	"github.com/faktion/registry/ports"
	"github.com/tidwall/jsonc"
)

// Source reads a registry.json file. Comments and trailing commas are
// accepted.
type Source struct {
	path string
}

// New creates a source for the given file.
func New(path string) *Source {
	return &Source{path: path}
}

// Path returns the file the source reads.
func (s *Source) Path() string {
	return s.path
}

// Load reads and decodes the registry document.
func (s *Source) Load(ctx context.Context) (catalog.Index, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Index{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return catalog.Index{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a registry document.
func Parse(data []byte) (catalog.Index, error) {
	var idx catalog.Index
	if err := json.Unmarshal(jsonc.ToJSON(data), &idx); err != nil {
		return catalog.Index{}, fmt.Errorf("parse catalog: %w", err)
	}
	return idx, nil
}

// Ensure interface compliance.
var _ ports.CatalogSource = (*Source)(nil)
