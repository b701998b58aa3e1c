// Package recipe provides recipe documents and their HTML rendering.
package recipe

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Content types and caching policy of recipe responses.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeHTML     = "text/html; charset=utf-8"
	CacheControl        = "s-maxage=300, stale-while-revalidate=86400"
)

// Recipe is a markdown document served alongside the catalog.
type Recipe struct {
	Name     string
	Markdown []byte
}

// goldmark.Markdown is safe to share; Convert keeps per-call state.
var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
			),
		)
	})
	return markdown
}

// RenderHTML converts the recipe's markdown to an HTML fragment.
func (r Recipe) RenderHTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := parser().Convert(r.Markdown, &buf); err != nil {
		return nil, fmt.Errorf("render recipe %s: %w", r.Name, err)
	}
	return buf.Bytes(), nil
}
