package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/faktion/registry/domain/recipe"
	"github.com/faktion/registry/ports"
)

// ErrRecipeNotFound is returned for names with no configured recipe.
var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeService serves the markdown recipes configured by name.
type RecipeService struct {
	paths map[string]string
	files ports.FileSource
}

// NewRecipeService creates a recipe service. paths maps recipe names to
// root-relative markdown files.
func NewRecipeService(paths map[string]string, files ports.FileSource) *RecipeService {
	copied := make(map[string]string, len(paths))
	for k, v := range paths {
		copied[k] = v
	}
	return &RecipeService{paths: copied, files: files}
}

// Get reads the named recipe.
func (s *RecipeService) Get(ctx context.Context, name string) (recipe.Recipe, error) {
	p, ok := s.paths[name]
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("%w: %q", ErrRecipeNotFound, name)
	}

	data, err := s.files.ReadFile(ctx, p)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("load recipe %s: %w", name, err)
	}
	return recipe.Recipe{Name: name, Markdown: data}, nil
}
