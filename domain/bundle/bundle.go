// Package bundle provides the bundled response value types.
package bundle

import (
	"encoding/json"
	"fmt"

	"github.com/faktion/registry/domain/catalog"
)

// ResolvedFile is a manifest file together with its content at resolution time.
type ResolvedFile struct {
	Path    string `json:"path"`
	Type    string `json:"type,omitempty"`
	Target  string `json:"target,omitempty"`
	Content string `json:"content"`
}

// Resolve pairs a file reference with its content.
func Resolve(ref catalog.FileRef, content []byte) ResolvedFile {
	return ResolvedFile{
		Path:    ref.Path,
		Type:    ref.Type,
		Target:  ref.Target,
		Content: string(content),
	}
}

// Item is an entry whose files carry their content. It is built fresh for
// every request and never mutated after Assemble.
type Item struct {
	Entry catalog.Entry
	Files []ResolvedFile
}

// Assemble builds the bundled item. The resolved files must match the
// entry's manifest one-to-one and in order.
// This is a PURE function.
func Assemble(entry catalog.Entry, files []ResolvedFile) (Item, error) {
	if len(files) != len(entry.Files) {
		return Item{}, fmt.Errorf("assemble %q: %d files resolved, manifest has %d", entry.Name, len(files), len(entry.Files))
	}
	for i, f := range files {
		if f.Path != entry.Files[i].Path {
			return Item{}, fmt.Errorf("assemble %q: file %d is %q, manifest has %q", entry.Name, i, f.Path, entry.Files[i].Path)
		}
	}
	return Item{Entry: entry, Files: files}, nil
}

// MarshalJSON encodes the entry's fields with files replaced by their
// resolved form.
func (it Item) MarshalJSON() ([]byte, error) {
	e := it.Entry
	e.Files = nil

	base, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}

	files, err := json.Marshal(it.Files)
	if err != nil {
		return nil, err
	}
	obj["files"] = files

	return json.Marshal(obj)
}
