// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/faktion/registry/domain/catalog"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Registry Ports
// -----------------------------------------------------------------------------

// CatalogSource loads the registry document.
type CatalogSource interface {
	Load(ctx context.Context) (catalog.Index, error)
}

// FileSource reads registry files by root-relative path.
// Missing files must be reported with an error wrapping fs.ErrNotExist.
type FileSource interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// HealthChecker reports whether a dependency can serve traffic.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
