// Package catalog provides the registry catalog value types and the
// read-only, name-indexed catalog built from them.
// This package has NO dependencies on I/O.
package catalog

import (
	"encoding/json"
	"fmt"
)

// FileRef is one file of an entry's manifest.
// Type and Target describe where the client installs the file and are
// passed through unchanged.
type FileRef struct {
	Path   string `json:"path"`
	Type   string `json:"type,omitempty"`
	Target string `json:"target,omitempty"`
}

// Entry is a named catalog item (immutable value type once loaded).
type Entry struct {
	Name                 string
	Type                 string
	Title                string
	Description          string
	Author               string
	Dependencies         []string
	DevDependencies      []string
	RegistryDependencies []string
	Categories           []string
	Files                []FileRef

	// Extra holds every manifest field not modelled above (cssVars,
	// tailwind, meta, docs, ...). It is emitted unchanged.
	Extra map[string]json.RawMessage

	raw json.RawMessage
}

// entryFields is the wire shape of the modelled fields.
type entryFields struct {
	Name                 string    `json:"name"`
	Type                 string    `json:"type,omitempty"`
	Title                string    `json:"title,omitempty"`
	Description          string    `json:"description,omitempty"`
	Author               string    `json:"author,omitempty"`
	Dependencies         []string  `json:"dependencies,omitempty"`
	DevDependencies      []string  `json:"devDependencies,omitempty"`
	RegistryDependencies []string  `json:"registryDependencies,omitempty"`
	Categories           []string  `json:"categories,omitempty"`
	Files                []FileRef `json:"files,omitempty"`
}

var knownFields = map[string]bool{
	"name":                 true,
	"type":                 true,
	"title":                true,
	"description":          true,
	"author":               true,
	"dependencies":         true,
	"devDependencies":      true,
	"registryDependencies": true,
	"categories":           true,
	"files":                true,
}

// UnmarshalJSON decodes a manifest entry, keeping unknown fields in Extra
// and the original document for schema validation.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var f entryFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}

	var extra map[string]json.RawMessage
	for k, v := range all {
		if knownFields[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}

	*e = Entry{
		Name:                 f.Name,
		Type:                 f.Type,
		Title:                f.Title,
		Description:          f.Description,
		Author:               f.Author,
		Dependencies:         f.Dependencies,
		DevDependencies:      f.DevDependencies,
		RegistryDependencies: f.RegistryDependencies,
		Categories:           f.Categories,
		Files:                f.Files,
		Extra:                extra,
		raw:                  append(json.RawMessage(nil), data...),
	}
	return nil
}

// MarshalJSON encodes the entry with its pass-through fields.
func (e Entry) MarshalJSON() ([]byte, error) {
	return MergeExtra(e.fields(), e.Extra)
}

// RawJSON returns the document the entry was decoded from.
// Entries built in code have no raw document; their encoding is returned.
func (e Entry) RawJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	return e.MarshalJSON()
}

func (e Entry) fields() entryFields {
	return entryFields{
		Name:                 e.Name,
		Type:                 e.Type,
		Title:                e.Title,
		Description:          e.Description,
		Author:               e.Author,
		Dependencies:         e.Dependencies,
		DevDependencies:      e.DevDependencies,
		RegistryDependencies: e.RegistryDependencies,
		Categories:           e.Categories,
		Files:                e.Files,
	}
}

// MergeExtra encodes v as a JSON object and adds the extra fields that v
// does not already define.
func MergeExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, fmt.Errorf("merge fields: %w", err)
	}
	for k, raw := range extra {
		if _, ok := obj[k]; ok {
			continue
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// Index is the registry document: metadata plus all items.
type Index struct {
	Schema   string  `json:"$schema,omitempty"`
	Name     string  `json:"name"`
	Homepage string  `json:"homepage,omitempty"`
	Items    []Entry `json:"items"`
}
