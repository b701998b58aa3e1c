package catalog

// Fixed category names shown ahead of the tag-derived ones.
const (
	CategoryGettingStarted = "Getting started"
	CategoryComponents     = "components"
)

// CategoryItem is the summary of an entry listed under a category.
type CategoryItem struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Category is a named group of entries.
type Category struct {
	Name  string         `json:"name"`
	Items []CategoryItem `json:"items"`
}

// Categories groups the catalog for navigation.
// "Getting started" holds the synthetic installation page, "components"
// holds entries without any category, and every other tag follows in the
// order it first appears. An entry with several tags is listed under each.
// This is a PURE function.
func Categories(c *Catalog) []Category {
	groups := []Category{
		{
			Name:  CategoryGettingStarted,
			Items: []CategoryItem{{Name: "installation", Title: "installation"}},
		},
		{
			Name:  CategoryComponents,
			Items: []CategoryItem{},
		},
	}
	pos := map[string]int{
		CategoryGettingStarted: 0,
		CategoryComponents:     1,
	}

	for _, e := range c.Entries() {
		if e.Name == "" {
			continue
		}
		item := CategoryItem{Name: e.Name, Title: e.Title}

		if len(e.Categories) == 0 {
			groups[1].Items = append(groups[1].Items, item)
			continue
		}

		for _, tag := range e.Categories {
			i, ok := pos[tag]
			if !ok {
				i = len(groups)
				pos[tag] = i
				groups = append(groups, Category{Name: tag, Items: []CategoryItem{}})
			}
			if tag == CategoryGettingStarted || tag == CategoryComponents {
				continue
			}
			groups[i].Items = append(groups[i].Items, item)
		}
	}

	return groups
}
