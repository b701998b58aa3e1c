package app

import (
	"context"

	"github.com/faktion/registry/domain/schema"
)

// EntryCheck is the outcome of checking one catalog entry.
type EntryCheck struct {
	Name       string
	Validation schema.Result
	Err        error // file resolution failure
}

// OK reports whether the entry would be served successfully.
func (c EntryCheck) OK() bool {
	return c.Validation.Valid && c.Err == nil
}

// CheckCatalog validates every entry and resolves all of its files, the
// same way a request would. Entries are checked one after another; the
// files of each entry are still read concurrently.
func (s *DistributionService) CheckCatalog(ctx context.Context) []EntryCheck {
	entries := s.catalog.Entries()
	checks := make([]EntryCheck, 0, len(entries))

	for _, e := range entries {
		c := EntryCheck{Name: e.Name, Validation: s.validator.Validate(e)}
		if c.Validation.Valid {
			_, c.Err = s.resolver.Resolve(ctx, e.Files)
		}
		checks = append(checks, c)
	}
	return checks
}
