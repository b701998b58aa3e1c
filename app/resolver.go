package app

import (
	"context"
	"fmt"

	"github.com/faktion/registry/domain/bundle"
	"github.com/faktion/registry/domain/catalog"
	"github.com/faktion/registry/ports"
	"golang.org/x/sync/errgroup"
)

// FileResolver reads every file of a manifest concurrently.
type FileResolver struct {
	source         ports.FileSource
	maxConcurrency int
}

// NewFileResolver creates a resolver. maxConcurrency <= 0 reads all files
// of a manifest at once.
func NewFileResolver(source ports.FileSource, maxConcurrency int) *FileResolver {
	return &FileResolver{
		source:         source,
		maxConcurrency: maxConcurrency,
	}
}

// Resolve reads all files and returns them in manifest order.
// The first failed read cancels the remaining ones and is returned; no
// partial result is ever returned. Each file is read exactly once.
func (r *FileResolver) Resolve(ctx context.Context, files []catalog.FileRef) ([]bundle.ResolvedFile, error) {
	out := make([]bundle.ResolvedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}

	for i, f := range files {
		g.Go(func() error {
			data, err := r.source.ReadFile(gctx, f.Path)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", f.Path, err)
			}
			out[i] = bundle.Resolve(f, data)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
