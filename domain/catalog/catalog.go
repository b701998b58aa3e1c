package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned when two entries share a name.
var ErrDuplicateName = errors.New("duplicate entry name")

// Catalog is the read-only set of entries indexed by name.
// It is safe for concurrent use because nothing mutates it after New.
type Catalog struct {
	index   Index
	byName  map[string]int
	unnamed int
}

// New indexes the registry document. Entries without a name cannot be
// looked up and are counted in Unnamed.
func New(index Index) (*Catalog, error) {
	c := &Catalog{
		index:  index,
		byName: make(map[string]int, len(index.Items)),
	}

	for i, e := range index.Items {
		if e.Name == "" {
			c.unnamed++
			continue
		}
		if _, ok := c.byName[e.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		c.byName[e.Name] = i
	}

	return c, nil
}

// Lookup returns the entry with the given name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.index.Items[i], true
}

// Entries returns all entries in manifest order.
func (c *Catalog) Entries() []Entry {
	return c.index.Items
}

// Names returns the names of all addressable entries in manifest order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for _, e := range c.index.Items {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// Index returns the registry document the catalog was built from.
func (c *Catalog) Index() Index {
	return c.index
}

// Len returns the number of addressable entries.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// Unnamed returns how many entries were skipped for having no name.
func (c *Catalog) Unnamed() int {
	return c.unnamed
}
