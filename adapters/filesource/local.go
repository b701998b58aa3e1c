// Package filesource provides FileSource implementations for the resolver.
package filesource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/faktion/registry/domain/schema"
	"github.com/faktion/registry/ports"
	"github.com/spf13/afero"
)

// ErrOutsideRoot is returned for paths that would escape the file root.
var ErrOutsideRoot = errors.New("path outside registry root")

// Local reads files from a directory tree.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a source rooted at dir. Reads cannot leave dir.
func NewLocal(dir string) *Local {
	return &Local{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), dir),
		root: dir,
	}
}

// NewLocalFs creates a source over an existing filesystem (e.g. afero.NewMemMapFs).
func NewLocalFs(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

// Root returns the directory the source is rooted at.
func (l *Local) Root() string {
	return l.root
}

// ReadFile reads a root-relative, slash-separated path.
func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !schema.IsLocalPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}

	if err := l.checkLinks(path); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// checkLinks resolves symlinks under the root and rejects paths whose real
// location is outside it. BasePathFs only checks the lexical path.
func (l *Local) checkLinks(path string) error {
	if l.root == "" {
		return nil
	}
	root, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	target, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		// Left to the read, which reports the missing file.
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %q links to %s", ErrOutsideRoot, path, target)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.FileSource = (*Local)(nil)
